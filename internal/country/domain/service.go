package domain

import (
	"context"
	"errors"

	"github.com/nomadlabs/atlas/pkg/db/pagination"
)

const (
	SortEstimatedGDPDesc = "gdp_desc"
	SortNameAsc          = "name_asc"
)

type ListFilter struct {
	Region       string
	CurrencyCode string
	Sort         string
}

type ListCountriesRequest struct {
	Region       string
	CurrencyCode string
	Sort         string
	PageToken    string
	PageSize     int
}

type ListCountriesResponse struct {
	pagination.PageInfo
	Countries []Country `json:"countries"`
}

type GetCountryRequest struct {
	Name string
}

type DeleteCountryRequest struct {
	Name string
}

type Service interface {
	List(context.Context, ListCountriesRequest) (ListCountriesResponse, error)
	GetByName(context.Context, GetCountryRequest) (Country, error)
	DeleteByName(context.Context, DeleteCountryRequest) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSort      = errors.New("invalid_sort")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
)
