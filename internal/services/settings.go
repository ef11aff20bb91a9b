package services

import (
	"context"
	"strings"

	"aroma-order-service/internal/restaurant"
)

type BrandColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// PublicSettings is the branding document served to the customer app.
type PublicSettings struct {
	BrandName     string      `json:"brandName"`
	LogoURL       string      `json:"logoUrl"`
	Colors        BrandColors `json:"colors"`
	BackgroundURL string      `json:"backgroundUrl"`
	FontFamily    string      `json:"fontFamily"`
	Currency      string      `json:"currency"`
}

type Settings struct {
	store restaurant.Store
}

func NewSettings(store restaurant.Store) *Settings {
	return &Settings{store: store}
}

func (s *Settings) Get(ctx context.Context) (restaurant.Settings, error) {
	return s.store.GetSettings(ctx)
}

func (s *Settings) Public(ctx context.Context) (PublicSettings, error) {
	st, err := s.store.GetSettings(ctx)
	if err != nil {
		return PublicSettings{}, err
	}
	return PublicSettings{
		BrandName:     st.BrandName,
		LogoURL:       st.LogoURL,
		Colors:        BrandColors{Primary: st.PrimaryColor, Secondary: st.SecondaryColor},
		BackgroundURL: st.BackgroundURL,
		FontFamily:    st.FontFamily,
		Currency:      st.Currency,
	}, nil
}

// Update replaces the settings wholesale. Optional URLs may be empty.
func (s *Settings) Update(ctx context.Context, in restaurant.Settings) (restaurant.Settings, error) {
	in.ID = restaurant.SettingsID
	in.BrandName = strings.TrimSpace(in.BrandName)
	in.LogoURL = strings.TrimSpace(in.LogoURL)
	in.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	in.SecondaryColor = strings.TrimSpace(in.SecondaryColor)
	in.BackgroundURL = strings.TrimSpace(in.BackgroundURL)
	in.FontFamily = strings.TrimSpace(in.FontFamily)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))

	switch {
	case in.BrandName == "":
		return restaurant.Settings{}, restaurant.ValidationError("brand_name is required")
	case in.PrimaryColor == "" || in.SecondaryColor == "":
		return restaurant.Settings{}, restaurant.ValidationError("primary_color and secondary_color are required")
	case in.FontFamily == "":
		return restaurant.Settings{}, restaurant.ValidationError("font_family is required")
	case len(in.Currency) != 3:
		return restaurant.Settings{}, restaurant.ValidationError("currency must be a 3-letter code")
	}

	if err := s.store.UpdateSettings(ctx, in); err != nil {
		return restaurant.Settings{}, err
	}
	return in, nil
}
