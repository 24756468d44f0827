package storage

import "github.com/iWorld-y/world_end/app/radar/pkg/model"

// seedCountries countries 表为空时写入的基准国家
var seedCountries = []model.Country{
	{Name: "United States", ISOCode: "USA", Continent: "North America", Region: "Northern America", CurrentRiskLevel: 25},
	{Name: "China", ISOCode: "CHN", Continent: "Asia", Region: "Eastern Asia", CurrentRiskLevel: 35},
	{Name: "Russia", ISOCode: "RUS", Continent: "Europe", Region: "Eastern Europe", CurrentRiskLevel: 75},
	{Name: "India", ISOCode: "IND", Continent: "Asia", Region: "Southern Asia", CurrentRiskLevel: 45},
	{Name: "United Kingdom", ISOCode: "GBR", Continent: "Europe", Region: "Northern Europe", CurrentRiskLevel: 20},
	{Name: "France", ISOCode: "FRA", Continent: "Europe", Region: "Western Europe", CurrentRiskLevel: 30},
	{Name: "Germany", ISOCode: "DEU", Continent: "Europe", Region: "Western Europe", CurrentRiskLevel: 15},
	{Name: "Japan", ISOCode: "JPN", Continent: "Asia", Region: "Eastern Asia", CurrentRiskLevel: 20},
	{Name: "Brazil", ISOCode: "BRA", Continent: "South America", Region: "South America", CurrentRiskLevel: 40},
	{Name: "Canada", ISOCode: "CAN", Continent: "North America", Region: "Northern America", CurrentRiskLevel: 10},
	{Name: "Ukraine", ISOCode: "UKR", Continent: "Europe", Region: "Eastern Europe", CurrentRiskLevel: 90},
	{Name: "Israel", ISOCode: "ISR", Continent: "Asia", Region: "Western Asia", CurrentRiskLevel: 85},
	{Name: "Afghanistan", ISOCode: "AFG", Continent: "Asia", Region: "Southern Asia", CurrentRiskLevel: 95},
	{Name: "North Korea", ISOCode: "PRK", Continent: "Asia", Region: "Eastern Asia", CurrentRiskLevel: 85},
}
