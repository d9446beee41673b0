package store

import (
	"github.com/misbar-ag/satwatch/internal/monitor"
)

func f(v float64) *float64 { return &v }

// DefaultSites are the bundled Saudi agricultural sites seeded into an empty
// gateway on first run. Their fallback bundles carry last-known-good archive
// values per imagery program.
func DefaultSites() []monitor.Site {
	return []monitor.Site{
		{
			ID:           "site1",
			Name:         "Al-Ahsa Palm Project",
			Lat:          25.4295,
			Lng:          49.6200,
			LandsatPath:  164,
			LandsatRow:   43,
			SentinelTile: "39RUL",
			Description:  "Largest palm oasis in the world",
			Area:         "12000 ha",
			Established:  "1975",
			CropType:     "date palms",
			WaterSource:  "groundwater wells",
			Fallback: monitor.FallbackBundle{
				NDVI:         f(0.68),
				CloudCover:   f(10),
				Temperature:  f(28.5),
				SoilMoisture: f(22),
				WaterUsage:   f(64),
				HistoricalNDVI: map[monitor.Program]float64{
					monitor.ProgramLandsat:   0.6847,
					monitor.ProgramSentinel2: 0.7123,
				},
				TypicalCloudCover: map[monitor.Program]float64{
					monitor.ProgramLandsat:   12,
					monitor.ProgramSentinel2: 8,
				},
			},
		},
		{
			ID:           "site2",
			Name:         "Al-Kharj Agricultural Project",
			Lat:          24.1333,
			Lng:          47.3000,
			LandsatPath:  165,
			LandsatRow:   43,
			SentinelTile: "38RLN",
			Description:  "Dairy and fodder production project",
			Area:         "8500 ha",
			Established:  "1980",
			CropType:     "fodder and wheat",
			WaterSource:  "treated water",
			Fallback: monitor.FallbackBundle{
				NDVI:         f(0.56),
				CloudCover:   f(13),
				Temperature:  f(29.1),
				SoilMoisture: f(27),
				WaterUsage:   f(71),
				HistoricalNDVI: map[monitor.Program]float64{
					monitor.ProgramLandsat:   0.5432,
					monitor.ProgramSentinel2: 0.5867,
				},
				TypicalCloudCover: map[monitor.Program]float64{
					monitor.ProgramLandsat:   15,
					monitor.ProgramSentinel2: 11,
				},
			},
		},
		{
			ID:           "site3",
			Name:         "Al-Jouf Agricultural Project",
			Lat:          29.7859,
			Lng:          40.2087,
			LandsatPath:  172,
			LandsatRow:   38,
			SentinelTile: "37RCN",
			Description:  "Largest olive farm in the Middle East",
			Area:         "15200 ha",
			Established:  "1985",
			CropType:     "olives and fruit",
			WaterSource:  "artesian wells",
			Fallback: monitor.FallbackBundle{
				NDVI:         f(0.74),
				CloudCover:   f(15),
				Temperature:  f(24.7),
				SoilMoisture: f(31),
				WaterUsage:   f(58),
				HistoricalNDVI: map[monitor.Program]float64{
					monitor.ProgramLandsat:   0.7234,
					monitor.ProgramSentinel2: 0.7698,
				},
				TypicalCloudCover: map[monitor.Program]float64{
					monitor.ProgramLandsat:   18,
					monitor.ProgramSentinel2: 13,
				},
			},
		},
		{
			ID:           "site4",
			Name:         "Tabuk Agricultural Projects",
			Lat:          28.3838,
			Lng:          36.5553,
			LandsatPath:  174,
			LandsatRow:   39,
			SentinelTile: "37RBK",
			Description:  "Strategic wheat production region in the north",
			Area:         "9800 ha",
			Established:  "1990",
			CropType:     "wheat and barley",
			WaterSource:  "groundwater",
			Fallback: monitor.FallbackBundle{
				NDVI:         f(0.47),
				CloudCover:   f(19),
				Temperature:  f(22.3),
				SoilMoisture: f(18),
				WaterUsage:   f(77),
				HistoricalNDVI: map[monitor.Program]float64{
					monitor.ProgramLandsat:   0.4567,
					monitor.ProgramSentinel2: 0.4923,
				},
				TypicalCloudCover: map[monitor.Program]float64{
					monitor.ProgramLandsat:   22,
					monitor.ProgramSentinel2: 16,
				},
			},
		},
	}
}
