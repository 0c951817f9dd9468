package reports

import (
	"bytes"
	"context"
	"html/template"
	"math"
	"sort"
	"strings"

	"coffeeroaster/internal/core"
	"coffeeroaster/internal/routing"
	"coffeeroaster/pkg/domain"
)

func routePlanSummary() Template {
	return Template{
		Key:         "route_plan_summary",
		Version:     "1",
		Title:       "Route Plan Summary",
		Description: "Master route plan slots with the customer's sub city and outlet type.",
		Columns: []Column{
			{Name: "route_no", Label: "Route No", Type: "text"},
			{Name: "day", Type: "text"},
			{Name: "customer", Type: "link"},
			{Name: "sub_city", Label: "Sub-City", Type: "text"},
			{Name: "outlet_type", Type: "text"},
		},
		Formats: allFormats,
		Run:     runRoutePlanSummary,
	}
}

func runRoutePlanSummary(ctx context.Context, req Request) (Result, error) {
	var rows []map[string]any
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		plans := domain.List[domain.MasterRoutePlan](v)
		sort.SliceStable(plans, func(i, j int) bool {
			di, dj := routing.WeekdayIndex(plans[i].Day), routing.WeekdayIndex(plans[j].Day)
			if di != dj {
				return di < dj
			}
			return plans[i].RouteNo < plans[j].RouteNo
		})
		for _, p := range plans {
			c, _ := domain.Find[domain.Customer](v, p.Customer)
			rows = append(rows, map[string]any{
				"route_no":    p.RouteNo,
				"day":         p.Day,
				"customer":    p.Customer,
				"sub_city":    c.SubCity,
				"outlet_type": c.OutletType,
			})
		}
		return nil
	})
	return Result{Rows: rows}, err
}

func masterRoutePlanBySubCity() Template {
	cols := []Column{
		{Name: "sub_city", Label: "SubCity", Type: "text"},
		{Name: "rout", Label: "Rout", Type: "int"},
		{Name: "day", Type: "text"},
		{Name: "area", Type: "text"},
	}
	for _, b := range routing.Buckets {
		cols = append(cols, Column{Name: strings.ToLower(b), Label: b, Type: "int"})
	}
	cols = append(cols, Column{Name: "total", Type: "int"})
	return Template{
		Key:         "master_route_plan_by_sub_city",
		Version:     "1",
		Title:       "Master Route Plan by Sub City",
		Description: "Planned visits per sub city and weekday in driving order with outlet bucket counts.",
		Parameters: withDateRange(
			Parameter{Name: "sub_city", Type: "string", Description: "comma separated sub cities"},
			Parameter{Name: "weekday", Type: "string", Enum: routing.Weekdays},
			Parameter{Name: "company", Type: "string", Description: "letterhead for the printed layout"},
		),
		Columns: cols,
		Formats: allFormats,
		Run:     runMasterRoutePlanBySubCity,
	}
}

type visit struct {
	subCity       string
	weekday       string
	customerName  string
	outlet        string
	notes         string
	orderPriority int
	loc           routing.Point
	planDate      string
}

func runMasterRoutePlanBySubCity(ctx context.Context, req Request) (Result, error) {
	wanted := map[string]bool{}
	for _, s := range routing.SplitList(req.String("sub_city")) {
		wanted[strings.ToLower(s)] = true
	}
	weekday := req.String("weekday")

	var visits []visit
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		for _, p := range domain.List[domain.RoutePlan](v) {
			if p.DocStatus == domain.DocStatusCancelled || !inRange(p.PlanDate, req) {
				continue
			}
			for _, d := range p.Details {
				visits = append(visits, visitOf(v, p, d))
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	sort.SliceStable(visits, func(i, j int) bool {
		a, b := visits[i], visits[j]
		if a.planDate != b.planDate {
			return a.planDate < b.planDate
		}
		if pa, pb := priorityKey(a.orderPriority), priorityKey(b.orderPriority); pa != pb {
			return pa < pb
		}
		return a.customerName < b.customerName
	})

	bySubCity := map[string]map[string][]visit{}
	for _, vis := range visits {
		if len(wanted) > 0 && !wanted[strings.ToLower(vis.subCity)] {
			continue
		}
		if weekday != "" && vis.weekday != weekday {
			continue
		}
		days := bySubCity[vis.subCity]
		if days == nil {
			days = map[string][]visit{}
			bySubCity[vis.subCity] = days
		}
		days[vis.weekday] = append(days[vis.weekday], vis)
	}
	subCities := make([]string, 0, len(bySubCity))
	for sc := range bySubCity {
		if sc != "" {
			subCities = append(subCities, sc)
		}
	}
	sort.Slice(subCities, func(i, j int) bool {
		return strings.ToLower(subCities[i]) < strings.ToLower(subCities[j])
	})

	grand := make(map[string]int, len(routing.Buckets))
	grandTotal := 0
	var rows []map[string]any
	for _, sc := range subCities {
		route := 1
		for _, wd := range routing.Weekdays {
			dayVisits := bySubCity[sc][wd]
			if len(dayVisits) == 0 {
				continue
			}
			ordered := driveOrder(dayVisits)
			var area []string
			counts := make(map[string]int, len(routing.Buckets))
			for _, vis := range ordered {
				if n := strings.TrimSpace(vis.notes); n != "" {
					area = append(area, n)
				}
				counts[routing.BucketFromText(vis.outlet)]++
			}
			label := ""
			if route == 1 {
				label = sc
			}
			row := map[string]any{
				"sub_city": label,
				"rout":     route,
				"day":      wd,
				"area":     strings.Join(area, " - "),
				"total":    len(ordered),
			}
			for _, b := range routing.Buckets {
				row[strings.ToLower(b)] = counts[b]
				grand[b] += counts[b]
			}
			grandTotal += len(ordered)
			rows = append(rows, row)
			route++
		}
	}
	total := map[string]any{"sub_city": "TOTAL", "rout": "", "day": "", "area": "", "total": grandTotal}
	for _, b := range routing.Buckets {
		total[strings.ToLower(b)] = grand[b]
	}
	rows = append(rows, total)

	company := req.String("company")
	if company == "" {
		if s, err := req.Source.Settings(ctx); err == nil {
			company = s.DefaultCompany
		}
	}
	profile, err := req.Source.CompanyPrintProfile(ctx, company)
	if err != nil {
		return Result{}, err
	}
	msg, err := routePrintLayout(profile, req, rows)
	if err != nil {
		return Result{}, err
	}
	return Result{Rows: rows, Message: msg}, nil
}

// visitOf merges a plan detail with its customer. Detail values win over
// the customer's.
func visitOf(v domain.TransactionView, p domain.RoutePlan, d domain.RoutePlanDetail) visit {
	c, _ := domain.Find[domain.Customer](v, d.Customer)
	lat, lng := d.Latitude, d.Longitude
	if lat == 0 {
		lat = c.Latitude
	}
	if lng == 0 {
		lng = c.Longitude
	}
	name := d.CustomerName
	if name == "" {
		name = c.CustomerName
	}
	return visit{
		subCity:       strings.TrimSpace(routing.FirstNonEmpty(d.SubCity, c.SubCity)),
		weekday:       routing.WeekdayOf(dateString(p.PlanDate)),
		customerName:  name,
		outlet:        routing.FirstNonEmpty(d.Bucket, d.OutletType, d.Channel, d.RTMChannel, c.OutletType, c.Outlet),
		notes:         routing.FirstNonEmpty(d.Notes, d.Area),
		orderPriority: d.OrderPriority,
		loc:           routing.Point{Lat: lat, Lng: lng},
		planDate:      dateString(p.PlanDate),
	}
}

func priorityKey(p int) int {
	if p == 0 {
		return math.MaxInt
	}
	return p
}

// driveOrder chains located visits by nearest neighbour from the first one
// and appends visits without coordinates in their existing order.
func driveOrder(visits []visit) []visit {
	var geo, noGeo []visit
	for _, vis := range visits {
		if vis.loc.Valid() {
			geo = append(geo, vis)
		} else {
			noGeo = append(noGeo, vis)
		}
	}
	ordered := routing.NearestNeighbor(geo, func(x visit) routing.Point { return x.loc }, nil)
	return append(ordered, noGeo...)
}

var routePrintTemplate = template.Must(template.New("route-print").Parse(`<div class="letterhead">
<h2>{{.Profile.Company}}</h2>
{{with .Profile.AddressDisplay}}<div>{{.}}</div>{{end}}
<div>{{with .Profile.TIN}}TIN: {{.}} {{end}}{{with .Profile.VATReg}}VAT Reg: {{.}} {{end}}{{with .Profile.Phone}}Tel: {{.}}{{end}}</div>
</div>
<h3>Master Route Plan by Sub City</h3>
<div class="period">{{if .From}}From {{.From}} {{end}}{{if .To}}To {{.To}} {{end}}{{with .Weekday}}({{.}}){{end}}</div>
<div class="routes">{{range .Rows}}{{if eq (index . "sub_city") "TOTAL"}}<p><b>TOTAL</b>: {{index . "total"}} outlets</p>{{else}}{{with index . "sub_city"}}<h4>{{.}}</h4>{{end}}<p>Route {{index . "rout"}}, {{index . "day"}}: {{index . "area"}}</p>{{end}}{{end}}</div>
`))

func routePrintLayout(profile core.PrintProfile, req Request, rows []map[string]any) (string, error) {
	var data struct {
		Profile  core.PrintProfile
		From, To string
		Weekday  string
		Rows     []map[string]any
	}
	data.Profile = profile
	if t, ok := req.Date("from_date"); ok {
		data.From = dateString(t)
	}
	if t, ok := req.Date("to_date"); ok {
		data.To = dateString(t)
	}
	data.Weekday = req.String("weekday")
	data.Rows = rows
	var buf bytes.Buffer
	if err := routePrintTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
