package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"coffeeroaster/internal/core"
)

var routeColumns = []column{
	{title: "#", numeric: true},
	{title: "Customer"},
	{title: "Name"},
	{title: "Sub-City"},
	{title: "Outlet"},
	{title: "Lat", numeric: true},
	{title: "Lng", numeric: true},
}

func newRouteCommand(ctx *commandContext) *cobra.Command {
	routeCmd := &cobra.Command{
		Use:   "route",
		Short: "Delivery route planning",
	}
	routeCmd.AddCommand(newRouteBuildCommand(ctx))
	return routeCmd
}

func newRouteBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		req      core.RouteRequest
		depotLat float64
		depotLng float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Order RTM assignments into a nearest-neighbour route",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("depot-lat") && cmd.Flags().Changed("depot-lng") {
				req.DepotLat, req.DepotLng = &depotLat, &depotLng
			}
			res, err := rt.svc.BuildRouteFromRTM(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}

			rows := make([][]string, 0, len(res.Stops))
			for _, s := range res.Stops {
				rows = append(rows, []string{
					strconv.Itoa(s.Seq),
					s.Customer,
					s.CustomerName,
					s.SubCity,
					s.OutletType,
					strconv.FormatFloat(s.Latitude, 'f', 6, 64),
					strconv.FormatFloat(s.Longitude, 'f', 6, 64),
				})
			}
			if res.Weekday != "" {
				fmt.Fprintf(out, "Weekday: %s\n", res.Weekday)
			}
			writeTable(out, routeColumns, rows)
			if res.RoutePlan != "" {
				fmt.Fprintf(out, "Saved draft route plan %s\n", res.RoutePlan)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&req.SubCities, "sub-city", nil, "Sub cities to include (repeatable)")
	cmd.Flags().StringVar(&req.Date, "date", "", "Visit date as YYYY-MM-DD; selects the weekday")
	cmd.Flags().StringVar(&req.Marketer, "marketer", "", "Only assignments of this marketer")
	cmd.Flags().Float64Var(&depotLat, "depot-lat", 0, "Depot latitude")
	cmd.Flags().Float64Var(&depotLng, "depot-lng", 0, "Depot longitude")
	cmd.Flags().BoolVar(&req.Save, "save", false, "Store the route as a draft route plan")
	cmd.Flags().StringVar(&req.Company, "company", "", "Company of the saved route plan")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the route as JSON")
	return cmd
}
