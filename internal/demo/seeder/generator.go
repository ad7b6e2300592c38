package seeder

import (
	"math/rand"
	"time"
)

type product struct {
	ModelID   string
	ModelName string
	Segment   string
}

type salesPerson struct {
	RSMID    string
	RSMName  string
	ZoneName string
	AreaName string
}

type billingRow struct {
	Date          time.Time
	ModelID       string
	RSMID         string
	OpenBooking   int
	RetailVolume  int
	BillingVolume int
	TestDrive     int
}

func demoProducts() []product {
	return []product{
		{ModelID: "M001", ModelName: "XUV700", Segment: "SUV"},
		{ModelID: "M002", ModelName: "Scorpio-N", Segment: "SUV"},
		{ModelID: "M003", ModelName: "Thar", Segment: "Off-road"},
		{ModelID: "M004", ModelName: "Bolero", Segment: "Utility"},
		{ModelID: "M005", ModelName: "XUV400", Segment: "Electric"},
	}
}

func demoSalesPersons() []salesPerson {
	return []salesPerson{
		{RSMID: "R001", RSMName: "A. Sharma", ZoneName: "North", AreaName: "Delhi NCR"},
		{RSMID: "R002", RSMName: "V. Iyer", ZoneName: "South", AreaName: "Chennai"},
		{RSMID: "R003", RSMName: "S. Banerjee", ZoneName: "East", AreaName: "Kolkata"},
		{RSMID: "R004", RSMName: "P. Desai", ZoneName: "West", AreaName: "Mumbai"},
	}
}

// generator produces one billing row per month, model, and region,
// deterministic for a given seed so repeated seeding yields identical
// data.
type generator struct {
	rnd *rand.Rand
}

func newGenerator(seed int64) *generator {
	return &generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *generator) billingRows(start time.Time, months int) []billingRow {
	products := demoProducts()
	persons := demoSalesPersons()

	var rows []billingRow
	for m := 0; m < months; m++ {
		date := start.AddDate(0, m, 0)
		for _, p := range products {
			for _, s := range persons {
				base := 40 + g.rnd.Intn(160)
				rows = append(rows, billingRow{
					Date:          date,
					ModelID:       p.ModelID,
					RSMID:         s.RSMID,
					OpenBooking:   scale(g.rnd, base, 0.8, 2.5),
					RetailVolume:  scale(g.rnd, base, 0.5, 3.8),
					BillingVolume: scale(g.rnd, base, 0.7, 2.6),
					TestDrive:     scale(g.rnd, base, 0.6, 2.4),
				})
			}
		}
	}
	return rows
}

// scale multiplies a base volume by a uniform factor in [lo, hi) and
// truncates to whole units.
func scale(rnd *rand.Rand, base int, lo, hi float64) int {
	return int(float64(base) * (lo + rnd.Float64()*(hi-lo)))
}
