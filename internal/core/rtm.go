package core

import (
	"context"
	"errors"

	"coffeeroaster/internal/geocode"
	"coffeeroaster/pkg/domain"
)

// ErrGeocodingDisabled is returned when no reverse geocoder is configured.
var ErrGeocodingDisabled = errors.New("reverse geocoding is disabled")

// SubmitRTMAssignment confirms an RTM assignment.
func (s *Service) SubmitRTMAssignment(ctx context.Context, id string) (domain.RTMAssignment, Result, error) {
	return submitDraft[domain.RTMAssignment](ctx, s, "submit_rtm_assignment", id)
}

// ReverseGeocode resolves coordinates to a display name and sub-city.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lng float64) (geocode.Place, error) {
	ctx, done := s.observe(ctx, "reverse_geocode", domain.EntityRTMAssignment, "")
	if s.geocoder == nil {
		done("", ErrGeocodingDisabled)
		return geocode.Place{}, ErrGeocodingDisabled
	}
	place, err := s.geocoder.Reverse(ctx, lat, lng)
	done("", err)
	return place, err
}

// GeocodeRTMAssignment fills the display address and an empty sub-city of
// an assignment from its coordinates.
func (s *Service) GeocodeRTMAssignment(ctx context.Context, id string) (domain.RTMAssignment, Result, error) {
	a, err := Get[domain.RTMAssignment](ctx, s, id)
	if err != nil {
		return domain.RTMAssignment{}, Result{}, err
	}
	if a.Latitude == 0 || a.Longitude == 0 {
		return domain.RTMAssignment{}, Result{}, domain.Invalidf("RTM Assignment %s has no coordinates.", id)
	}
	place, err := s.ReverseGeocode(ctx, a.Latitude, a.Longitude)
	if err != nil {
		return domain.RTMAssignment{}, Result{}, err
	}
	return Update(ctx, s, id, func(cur *domain.RTMAssignment) error {
		cur.DisplayAddress = place.DisplayName
		if cur.SubCity == "" {
			cur.SubCity = place.SubCity
		}
		return nil
	})
}
