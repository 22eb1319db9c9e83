package metrics

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/loader"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// fixedAssetTaxRate converts a land tax base (thousand yen) into the
// fixed-asset tax revenue, reported in ten-thousand yen units.
const fixedAssetTaxRate = 0.014

// FixedAssetRow is one fiscal year of the land fixed-asset tax indicators
// (report IF106).
type FixedAssetRow struct {
	Year            string `csv:"year"`
	LandTax         string `csv:"land_fixed_asset_tax"`
	ChangeRate      string `csv:"land_fixed_asset_tax_change_rate"`
	ChangeRateDelta string `csv:"land_fixed_asset_tax_change_rate_delta"`
}

// ExpenditureRow is one comparison period of the per-capita settlement
// expenditure indicators (report IF106).
type ExpenditureRow struct {
	Period            int    `csv:"period"`
	Label             string `csv:"label"`
	PerCapitaAvg      string `csv:"per_capita_expenditure_avg"`
	PerCapitaAvgDelta string `csv:"per_capita_expenditure_avg_delta"`
}

// expenditurePeriods are the two five-year windows the survey compares.
var expenditurePeriods = []struct {
	id          int
	label       string
	first, last int
}{
	{1, "2012-2017", 2012, 2017},
	{2, "2017-2022", 2017, 2022},
}

// targetCity identifies one municipality covered by the evaluation.
type targetCity struct {
	Prefecture string
	Name       string
}

// Fiscal computes the land tax and per-capita expenditure indicators from
// the survey workbooks under inputDir. The workbook trees are optional;
// missing ones produce NA rows.
func (c *Calculator) Fiscal(ctx context.Context, inputDir string) ([]FixedAssetRow, []ExpenditureRow, error) {
	zones, err := c.loadLayer(ctx, "zones")
	if err != nil {
		return nil, nil, err
	}

	cities := targetCities(zones.FilterInt("is_target", 1))
	if len(cities) == 0 {
		zap.L().Warn("metrics: no target cities, fiscal indicators empty")
		return []FixedAssetRow{emptyFixedAssetRow()}, emptyExpenditureRows(), nil
	}

	fixed := fixedAssetRows(filepath.Join(inputDir, "fixed_assets"), cities)
	expenditure := expenditureRows(filepath.Join(inputDir, "settlements"), cities)

	return fixed, expenditure, nil
}

// targetCities collects the distinct prefecture and municipality pairs of
// the target zones.
func targetCities(zones []*model.Feature) []targetCity {
	seen := make(map[string]bool)
	var cities []targetCity
	for _, z := range zones {
		pref := z.String("prefecture_name")
		name := z.String("name")
		if pref == "" || name == "" {
			continue
		}
		key := pref + "_" + name
		if seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, targetCity{Prefecture: pref, Name: name})
	}
	return cities
}

func emptyFixedAssetRow() FixedAssetRow {
	return FixedAssetRow{Year: NA, LandTax: NA, ChangeRate: NA, ChangeRateDelta: NA}
}

func emptyExpenditureRows() []ExpenditureRow {
	rows := make([]ExpenditureRow, 0, len(expenditurePeriods))
	for _, p := range expenditurePeriods {
		rows = append(rows, ExpenditureRow{
			Period:            p.id,
			Label:             p.label,
			PerCapitaAvg:      NA,
			PerCapitaAvgDelta: NA,
		})
	}
	return rows
}

// fixedAssetRows reads every year folder of the fixed-asset survey and
// produces one row per year with a usable tax total.
func fixedAssetRows(dir string, cities []targetCity) []FixedAssetRow {
	taxByYear := make(map[int]float64)
	for year, path := range yearWorkbooks(dir) {
		wb, err := loader.ReadWorkbook(path)
		if err != nil {
			zap.L().Warn("metrics: fixed asset workbook unreadable",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		var total float64
		for _, city := range cities {
			total += extractTaxRevenue(wb, city, year)
		}
		if total > 0 {
			taxByYear[year] = total
		}
	}

	if len(taxByYear) == 0 {
		return []FixedAssetRow{emptyFixedAssetRow()}
	}

	years := make([]int, 0, len(taxByYear))
	for y := range taxByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	rows := make([]FixedAssetRow, 0, len(years))
	changeRates := make(map[int]float64)
	for i, year := range years {
		row := FixedAssetRow{
			Year:            strconv.Itoa(year),
			LandTax:         numCell(taxByYear[year], 0),
			ChangeRate:      NA,
			ChangeRateDelta: NA,
		}

		if i > 0 {
			prevTax := taxByYear[years[i-1]]
			if prevTax > 0 {
				rate := (taxByYear[year] - prevTax) / prevTax
				changeRates[year] = rate
				row.ChangeRate = numCell(round3(rate), -1)
			}
		}
		if i > 1 {
			if cur, ok := changeRates[year]; ok {
				if prev, ok := changeRates[years[i-1]]; ok {
					row.ChangeRateDelta = numCell(round3(cur-prev), -1)
				}
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// expenditureRows aggregates the per-capita settlement expenditure into
// the two comparison periods. The second period carries the ratio of its
// average over the first period's.
func expenditureRows(dir string, cities []targetCity) []ExpenditureRow {
	perCapitaByYear := make(map[int]float64)
	for year, path := range yearWorkbooks(dir) {
		wb, err := loader.ReadWorkbook(path)
		if err != nil {
			zap.L().Warn("metrics: settlement workbook unreadable",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		var totalExp, totalPop float64
		for _, city := range cities {
			exp, pop := extractExpenditurePopulation(wb, city)
			totalExp += exp
			totalPop += pop
		}
		if totalPop > 0 {
			perCapitaByYear[year] = totalExp / totalPop
		}
	}

	rows := make([]ExpenditureRow, 0, len(expenditurePeriods))
	averages := make([]float64, len(expenditurePeriods))
	for i, p := range expenditurePeriods {
		var sum float64
		var n int
		for year := p.first; year <= p.last; year++ {
			if v, ok := perCapitaByYear[year]; ok {
				sum += v
				n++
			}
		}

		row := ExpenditureRow{
			Period:            p.id,
			Label:             p.label,
			PerCapitaAvg:      NA,
			PerCapitaAvgDelta: NA,
		}
		if n > 0 {
			averages[i] = sum / float64(n)
			row.PerCapitaAvg = numCell(round3(averages[i]), -1)
		}
		rows = append(rows, row)
	}

	if averages[0] > 0 && averages[1] > 0 {
		rows[1].PerCapitaAvgDelta = numCell(round3(averages[1]/averages[0]), -1)
	}

	return rows
}

// yearWorkbooks maps year folders under dir to the workbook inside each.
// Folder names are a four-digit year, optionally with a "年度" suffix.
func yearWorkbooks(dir string) map[int]string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	found := make(map[int]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSuffix(e.Name(), "年度"))
		if err != nil {
			continue
		}
		path, err := loader.FindWorkbook(filepath.Join(dir, e.Name()))
		if err != nil || path == "" {
			continue
		}
		found[year] = path
	}
	return found
}

// Column layouts of the fixed-asset survey workbook by publication year.
// The prefecture and municipality always occupy columns B and C; the row
// is only counted when the year-specific summary column reads 合計.
func fixedAssetColumns(year int) (totalCol, taxCol int, ok bool) {
	switch year {
	case 2010:
		return 5, 19, true
	case 2015:
		return 5, 13, true
	case 2020:
		return 3, 12, true
	default:
		return 0, 0, false
	}
}

// extractTaxRevenue finds the city's 合計 row in any sheet and converts its
// tax base into revenue.
func extractTaxRevenue(wb *loader.Workbook, city targetCity, year int) float64 {
	totalCol, taxCol, ok := fixedAssetColumns(year)
	if !ok {
		return 0
	}

	for _, rows := range wb.Sheets {
		for i := range rows {
			if loader.Cell(rows, i, 1) != city.Prefecture || loader.Cell(rows, i, 2) != city.Name {
				continue
			}
			if loader.Cell(rows, i, totalCol) != "合計" {
				continue
			}
			base, err := strconv.ParseFloat(loader.Cell(rows, i, taxCol), 64)
			if err != nil || base <= 0 {
				continue
			}
			return base * fixedAssetTaxRate / 10
		}
	}
	return 0
}

// Settlement survey column layout: the municipality column also carries
// the prefecture header rows, with each character padded by ideographic
// spaces.
const (
	settlementNameCol        = 15
	settlementPopulationCol  = 18
	settlementExpenditureCol = 40
)

// extractExpenditurePopulation finds the city's row inside its prefecture
// section and returns its total expenditure and population.
func extractExpenditurePopulation(wb *loader.Workbook, city targetCity) (expenditure, population float64) {
	spacedPrefecture := spaceOut(city.Prefecture)

	for _, rows := range wb.Sheets {
		inPrefecture := false
		for i := range rows {
			cell := loader.Cell(rows, i, settlementNameCol)
			if cell == "" {
				continue
			}

			if cell == spacedPrefecture {
				inPrefecture = true
				continue
			}
			if !inPrefecture {
				continue
			}
			if strings.Contains(cell, "合") && strings.Contains(cell, "計") {
				inPrefecture = false
				continue
			}
			if cell != city.Name {
				continue
			}

			population, _ = strconv.ParseFloat(loader.Cell(rows, i, settlementPopulationCol), 64)
			expenditure, _ = strconv.ParseFloat(loader.Cell(rows, i, settlementExpenditureCol), 64)
			return expenditure, population
		}
	}
	return 0, 0
}

// spaceOut joins the runes of s with ideographic spaces, matching the
// prefecture header style of the settlement survey.
func spaceOut(s string) string {
	runes := []rune(s)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, "　")
}
