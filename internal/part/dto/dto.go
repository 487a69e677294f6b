package dto

type PartFilters struct {
	Search   string // matches name or brand
	Grade    string
	IsActive *bool
	Page     int
	PageSize int
}
