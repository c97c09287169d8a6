package models

// Requests for the probability map HTTP endpoints.

type MapRequest struct {
	MinN        int    `query:"min_n" json:"min_n" default:"0" validate:"gte=0"`
	Reliability string `query:"reliability" json:"reliability" validate:"omitempty,oneof=Low Medium High"`
	Limit       int    `query:"limit" json:"limit" default:"108" validate:"gte=1,lte=108"`
}

type DaysRequest struct {
	From    string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Variant string `query:"variant" json:"variant"`
	Limit   int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
