package normalize

import "github.com/okian/wbstats/internal/domain/table"

// Output column names shared across layouts and downstream stages.
const (
	ColID          = "ID"
	ColName        = "Name"
	ColRegion      = "Region"
	ColIncomeLevel = "Income Level"
	ColLendingType = "Lending Type"
	ColCapitalCity = "Capital City"
	ColLongitude   = "Longitude"
	ColLatitude    = "Latitude"

	ColSeriesID          = "Series ID"
	ColSeriesName        = "Series Name"
	ColSeriesDescription = "Series Description"
	ColSourceOrg         = "Source Organization"
	ColSourceID          = "Source ID"

	ColCountryCode = "Country Code"
	ColCountry     = "Country"
	ColDate        = "Date"
	ColValue       = "Value"
)

// Layout is a named field map plus output column order.
type Layout struct {
	Fields  map[string]string
	Columns []string
}

// Apply normalizes records with this layout.
func (l Layout) Apply(records []Record) (table.Table, error) {
	return Normalize(records, l.Fields, l.Columns)
}

// Countries is the layout for World Bank country metadata.
func Countries() Layout {
	return Layout{
		Fields: map[string]string{
			"id":                ColID,
			"name":              ColName,
			"region.value":      ColRegion,
			"incomeLevel.value": ColIncomeLevel,
			"lendingType.value": ColLendingType,
			"capitalCity":       ColCapitalCity,
			"longitude":         ColLongitude,
			"latitude":          ColLatitude,
		},
		Columns: []string{ColID, ColName, ColRegion, ColIncomeLevel, ColLendingType, ColCapitalCity, ColLongitude, ColLatitude},
	}
}

// Indicators is the layout for indicator (series) metadata.
func Indicators() Layout {
	return Layout{
		Fields: map[string]string{
			"id":                 ColSeriesID,
			"name":               ColSeriesName,
			"sourceNote":         ColSeriesDescription,
			"sourceOrganization": ColSourceOrg,
			"source.id":          ColSourceID,
		},
		Columns: []string{ColSeriesID, ColSeriesName, ColSeriesDescription, ColSourceOrg, ColSourceID},
	}
}

// Observations is the layout for indicator values per country and date.
func Observations() Layout {
	return Layout{
		Fields: map[string]string{
			"countryiso3code": ColCountryCode,
			"country.value":   ColCountry,
			"indicator.id":    ColSeriesID,
			"date":            ColDate,
			"value":           ColValue,
		},
		Columns: []string{ColCountryCode, ColCountry, ColSeriesID, ColDate, ColValue},
	}
}
