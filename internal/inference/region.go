package inference

import (
	"regexp"
	"strings"

	"auctionhub/internal/models"
)

type regionKeyword struct {
	keyword string
	region  string
	re      *regexp.Regexp
}

// regionTable is scanned in order; the first keyword found wins.
var regionTable = buildRegionTable([][2]string{
	{"london", models.RegionLondon}, {"croydon", models.RegionLondon}, {"bromley", models.RegionLondon},
	{"hackney", models.RegionLondon}, {"islington", models.RegionLondon}, {"camden", models.RegionLondon},
	{"westminster", models.RegionLondon}, {"tower hamlets", models.RegionLondon}, {"southwark", models.RegionLondon},
	{"lambeth", models.RegionLondon}, {"brixton", models.RegionLondon}, {"lewisham", models.RegionLondon},
	{"greenwich", models.RegionLondon}, {"barnet", models.RegionLondon}, {"ealing", models.RegionLondon},
	{"hammersmith", models.RegionLondon}, {"wandsworth", models.RegionLondon}, {"hounslow", models.RegionLondon},
	{"kensington", models.RegionLondon}, {"newham", models.RegionLondon}, {"enfield", models.RegionLondon},
	{"haringey", models.RegionLondon}, {"redbridge", models.RegionLondon}, {"havering", models.RegionLondon},

	{"manchester", models.RegionNorthWest}, {"liverpool", models.RegionNorthWest}, {"bolton", models.RegionNorthWest},
	{"wigan", models.RegionNorthWest}, {"preston", models.RegionNorthWest}, {"blackpool", models.RegionNorthWest},
	{"oldham", models.RegionNorthWest}, {"rochdale", models.RegionNorthWest}, {"burnley", models.RegionNorthWest},
	{"blackburn", models.RegionNorthWest}, {"salford", models.RegionNorthWest}, {"warrington", models.RegionNorthWest},
	{"stockport", models.RegionNorthWest}, {"hyde", models.RegionNorthWest}, {"chester", models.RegionNorthWest},
	{"lancaster", models.RegionNorthWest},

	{"birmingham", models.RegionWestMidlands}, {"coventry", models.RegionWestMidlands}, {"wolverhampton", models.RegionWestMidlands},
	{"stoke", models.RegionWestMidlands}, {"dudley", models.RegionWestMidlands}, {"walsall", models.RegionWestMidlands},
	{"solihull", models.RegionWestMidlands}, {"west bromwich", models.RegionWestMidlands}, {"worcester", models.RegionWestMidlands},
	{"hereford", models.RegionWestMidlands}, {"telford", models.RegionWestMidlands}, {"smethwick", models.RegionWestMidlands},

	{"leeds", models.RegionYorkshire}, {"sheffield", models.RegionYorkshire}, {"bradford", models.RegionYorkshire},
	{"hull", models.RegionYorkshire}, {"doncaster", models.RegionYorkshire}, {"huddersfield", models.RegionYorkshire},
	{"halifax", models.RegionYorkshire}, {"york", models.RegionYorkshire}, {"rotherham", models.RegionYorkshire},
	{"barnsley", models.RegionYorkshire}, {"wakefield", models.RegionYorkshire}, {"harrogate", models.RegionYorkshire},
	{"hillsborough", models.RegionYorkshire}, {"scarborough", models.RegionYorkshire},

	{"newcastle", models.RegionNorthEast}, {"sunderland", models.RegionNorthEast}, {"durham", models.RegionNorthEast},
	{"middlesbrough", models.RegionNorthEast}, {"redcar", models.RegionNorthEast}, {"south shields", models.RegionNorthEast},
	{"gateshead", models.RegionNorthEast}, {"hartlepool", models.RegionNorthEast}, {"darlington", models.RegionNorthEast},

	{"bristol", models.RegionSouthWest}, {"exeter", models.RegionSouthWest}, {"plymouth", models.RegionSouthWest},
	{"bath", models.RegionSouthWest}, {"gloucester", models.RegionSouthWest}, {"devon", models.RegionSouthWest},
	{"cornwall", models.RegionSouthWest}, {"somerset", models.RegionSouthWest}, {"taunton", models.RegionSouthWest},
	{"dorset", models.RegionSouthWest}, {"wiltshire", models.RegionSouthWest}, {"swindon", models.RegionSouthWest},
	{"bournemouth", models.RegionSouthWest}, {"cheltenham", models.RegionSouthWest},

	{"cardiff", models.RegionWales}, {"swansea", models.RegionWales}, {"newport", models.RegionWales},
	{"wrexham", models.RegionWales}, {"welsh", models.RegionWales}, {"wales", models.RegionWales},
	{"penygroes", models.RegionWales}, {"llanelli", models.RegionWales}, {"rhyl", models.RegionWales},
	{"carmarthen", models.RegionWales}, {"aberystwyth", models.RegionWales},

	{"edinburgh", models.RegionScotland}, {"glasgow", models.RegionScotland}, {"dundee", models.RegionScotland},
	{"aberdeen", models.RegionScotland}, {"scotland", models.RegionScotland}, {"inverness", models.RegionScotland},
	{"stirling", models.RegionScotland},

	{"cambridge", models.RegionEastAnglia}, {"norwich", models.RegionEastAnglia}, {"ipswich", models.RegionEastAnglia},
	{"norfolk", models.RegionEastAnglia}, {"suffolk", models.RegionEastAnglia}, {"peterborough", models.RegionEastAnglia},
	{"bury st edmunds", models.RegionEastAnglia},

	{"nottingham", models.RegionEastMidlands}, {"leicester", models.RegionEastMidlands}, {"derby", models.RegionEastMidlands},
	{"northampton", models.RegionEastMidlands}, {"lincoln", models.RegionEastMidlands},

	{"kent", models.RegionSouthEast}, {"surrey", models.RegionSouthEast}, {"sussex", models.RegionSouthEast},
	{"essex", models.RegionSouthEast}, {"hertford", models.RegionSouthEast}, {"brighton", models.RegionSouthEast},
	{"guildford", models.RegionSouthEast}, {"reading", models.RegionSouthEast}, {"oxford", models.RegionSouthEast},
	{"milton keynes", models.RegionSouthEast}, {"bedford", models.RegionSouthEast}, {"luton", models.RegionSouthEast},
	{"colchester", models.RegionSouthEast}, {"chelmsford", models.RegionSouthEast}, {"basildon", models.RegionSouthEast},
	{"maidstone", models.RegionSouthEast}, {"canterbury", models.RegionSouthEast}, {"dover", models.RegionSouthEast},
	{"portsmouth", models.RegionSouthEast}, {"southampton", models.RegionSouthEast}, {"winchester", models.RegionSouthEast},
	{"crawley", models.RegionSouthEast}, {"hastings", models.RegionSouthEast}, {"folkestone", models.RegionSouthEast},
	{"southend", models.RegionSouthEast},
})

func buildRegionTable(pairs [][2]string) []regionKeyword {
	out := make([]regionKeyword, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, regionKeyword{
			keyword: p[0],
			region:  p[1],
			re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(p[0]) + `\b`),
		})
	}
	return out
}

// InferRegion returns the region of the first keyword found in text, or fallback.
// Keywords match whole words so "bathroom" does not read as Bath.
func InferRegion(text, fallback string) string {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return fallback
	}
	for _, kw := range regionTable {
		if !strings.Contains(lower, kw.keyword) {
			continue
		}
		if kw.re.MatchString(lower) {
			return kw.region
		}
	}
	return fallback
}
