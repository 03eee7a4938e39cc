package models

import "time"

type Titles struct {
	EN string `json:"title_en"`
	TH string `json:"title_th"`
	ZH string `json:"title_zh"`
}

type Property struct {
	ID              int64     `json:"id"`
	Code            string    `json:"property_code"`
	TypeID          *int64    `json:"type_id,omitempty"`
	StatusID        *int64    `json:"status_id,omitempty"`
	SubdistrictID   *int64    `json:"subdistrict_id,omitempty"`
	TypeText        string    `json:"type_text,omitempty"`
	StatusText      string    `json:"status_text,omitempty"`
	ProvinceText    string    `json:"province_text,omitempty"`
	DistrictText    string    `json:"district_text,omitempty"`
	SubdistrictText string    `json:"subdistrict_text,omitempty"`
	Size            *float64  `json:"size,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	Description     string    `json:"description,omitempty"`
	Features        []string  `json:"features"`
	Labels          []string  `json:"labels"`
	Titles          Titles    `json:"titles"`
	TeamID          string    `json:"team_id,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
