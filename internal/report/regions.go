package report

import "covidprj/internal/model"

// nomes das regiões do mapa "world" do echarts que diferem do location da OWID,
// indexados por iso_code
var mapRegionNames = map[string]string{
	"BIH":      "Bosnia and Herz.",
	"CAF":      "Central African Rep.",
	"CIV":      "Côte d'Ivoire",
	"COD":      "Dem. Rep. Congo",
	"CZE":      "Czech Rep.",
	"DOM":      "Dominican Rep.",
	"ESH":      "W. Sahara",
	"FLK":      "Falkland Is.",
	"GNQ":      "Eq. Guinea",
	"KOR":      "Korea",
	"LAO":      "Lao PDR",
	"MKD":      "Macedonia",
	"OWID_CYN": "N. Cyprus",
	"PRK":      "Dem. Rep. Korea",
	"SLB":      "Solomon Is.",
	"SSD":      "S. Sudan",
	"SWZ":      "Swaziland",
	"TLS":      "Timor-Leste",
}

// mapRegion devolve o nome da região no mapa para o registro, caindo no location.
func mapRegion(r *model.Record) string {
	if name, ok := mapRegionNames[r.ISOCode]; ok {
		return name
	}
	return r.Location
}
