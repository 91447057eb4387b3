package grib2

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Product is the semantic classification of a decoded field.
type Product int

const (
	ProductRainfallAnalysis Product = iota + 1 // 解析雨量 (1 km mesh analysed rainfall)
	ProductPrecipitationForecast               // 降水短時間予報 (short-range precipitation forecast)
	ProductSoilWaterIndex                      // 土壌雨量指数 (soil water index, current)
	ProductSoilWaterIndexForecast              // 土壌雨量指数予測値
	ProductLandslideRisk                       // 土砂災害警戒判定メッシュ (landslide risk grade)
)

func (p Product) String() string {
	switch p {
	case ProductRainfallAnalysis:
		return "rainfall analysis"
	case ProductPrecipitationForecast:
		return "precipitation forecast"
	case ProductSoilWaterIndex:
		return "soil water index"
	case ProductSoilWaterIndexForecast:
		return "soil water index forecast"
	case ProductLandslideRisk:
		return "landslide risk"
	default:
		return "unknown product"
	}
}

// ParameterID is the (category, number) pair from the product definition
// template, using the producer's local parameter table.
type ParameterID struct {
	Category byte
	Number   byte
}

// productTable is the exhaustive classification of the parameters this
// decoder understands. Extending support to a sixth product is one entry
// here plus a Product constant. Unknown pairs are a hard decode error:
// unit interpretation downstream depends on the product, and guessing
// would corrupt hazard-assessment inputs without any visible failure.
var productTable = map[ParameterID]Product{
	{Category: 1, Number: 201}: ProductRainfallAnalysis,
	{Category: 1, Number: 203}: ProductPrecipitationForecast,
	{Category: 1, Number: 232}: ProductSoilWaterIndex,
	{Category: 1, Number: 233}: ProductSoilWaterIndexForecast,
	{Category: 1, Number: 216}: ProductLandslideRisk,
}

// classifyParameter resolves a parameter pair against productTable.
func classifyParameter(id ParameterID) (Product, error) {
	p, ok := productTable[id]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownParameter,
			"parameter category %d number %d", id.Category, id.Number)
	}
	return p, nil
}

// ProductExtra carries the fields specific to one product definition
// template. Exactly one concrete type exists per supported template with
// a template-specific tail; template 4.0 has none.
type ProductExtra interface {
	productExtra()
}

// StatProcExtra is the statistical-processing tail shared by the
// radar-derived templates 4.50008 (analysis) and 4.50009 (forecast).
type StatProcExtra struct {
	IntervalEnd        time.Time
	TimeRangeSpecs     byte
	MissingValues      uint32
	StatProc           byte
	StatProcIncrement  byte
	StatProcTimeUnit   byte
	StatProcTimeLength uint32
	SuccessiveTimeUnit byte
	SuccessiveTimeIncr uint32
	RadarInfo1         uint64
	RadarInfo2         uint64
	RainGaugeInfo      uint64 // template 4.50008 only
}

func (StatProcExtra) productExtra() {}

// SourceDocExtra is the processed-product tail of template 4.50000: the
// source documents a derived product was computed from.
type SourceDocExtra struct {
	SourceDocument1 byte
	HoursFromDoc1   uint16
	MinutesFromDoc1 byte
	SourceDocument2 byte
	HoursFromDoc2   uint16
	MinutesFromDoc2 byte
}

func (SourceDocExtra) productExtra() {}

// ProductDefinition is the decoded Section 4. The leading fields are
// common to all supported templates; Extra holds the template-specific
// tail, nil for template 4.0.
type ProductDefinition struct {
	TemplateNumber uint16
	Parameter      ParameterID
	Product        Product

	GeneratingProcessType byte
	BackgroundProcess     byte
	GeneratingProcessID   byte
	HoursAfterCutoff      uint16
	MinutesAfterCutoff    byte
	TimeUnit              byte
	ForecastTime          int32 // in TimeUnit units, verbatim from the template

	FirstSurfaceType   byte
	FirstSurfaceScale  byte
	FirstSurfaceValue  uint32
	SecondSurfaceType  byte
	SecondSurfaceScale byte
	SecondSurfaceValue uint32

	Extra ProductExtra
}

// Product definition template numbers used by the producer.
const (
	pdtDefault       = 0     // point-in-time analysis (soil water index)
	pdtProcessed     = 50000 // product derived from other products
	pdtRadarAnalysis = 50008 // radar and rain-gauge analysis
	pdtRadarForecast = 50009 // radar-based forecast
)

// Template-specific tail lengths, counted from the start of template data.
const (
	pdtCommonLen        = 25
	statProcLen         = 40 // datetime(7)+specs(1)+missing(4)+proc(1)+incr(1)+unit(1)+len(4)+sunit(1)+sincr(4)+radar1(8)+radar2(8)
	sourceDocLen        = 8
	rainGaugeLen        = 8
	sectionHeaderPDTLen = 9 // length(4)+number(1)+coord count(2)+template number(2)
)

// parseProductDefinition decodes Section 4.
func parseProductDefinition(sec Section) (ProductDefinition, error) {
	b := sec.Body
	// b[0:4]=length, b[4]=4, b[5:7]=coordinate values after template,
	// b[7:9]=template number, template data from b[9].
	if len(b) < sectionHeaderPDTLen+pdtCommonLen {
		return ProductDefinition{}, errors.Wrapf(ErrTruncatedMessage,
			"section 4 at %d: too short (%d bytes)", sec.Offset, len(b))
	}
	tmpl := binary.BigEndian.Uint16(b[7:9])
	t := b[sectionHeaderPDTLen:]

	pd := ProductDefinition{
		TemplateNumber:        tmpl,
		Parameter:             ParameterID{Category: t[0], Number: t[1]},
		GeneratingProcessType: t[2],
		BackgroundProcess:     t[3],
		GeneratingProcessID:   t[4],
		HoursAfterCutoff:      binary.BigEndian.Uint16(t[5:7]),
		MinutesAfterCutoff:    t[7],
		TimeUnit:              t[8],
		ForecastTime:          int32(binary.BigEndian.Uint32(t[9:13])),
		FirstSurfaceType:      t[13],
		FirstSurfaceScale:     t[14],
		FirstSurfaceValue:     binary.BigEndian.Uint32(t[15:19]),
		SecondSurfaceType:     t[19],
		SecondSurfaceScale:    t[20],
		SecondSurfaceValue:    binary.BigEndian.Uint32(t[21:25]),
	}

	product, err := classifyParameter(pd.Parameter)
	if err != nil {
		return ProductDefinition{}, errors.WithMessagef(err, "section 4 at %d", sec.Offset)
	}
	pd.Product = product

	tail := t[pdtCommonLen:]
	switch tmpl {
	case pdtDefault:
		// no tail
	case pdtProcessed:
		extra, err := parseSourceDocExtra(tail, sec.Offset)
		if err != nil {
			return ProductDefinition{}, err
		}
		pd.Extra = extra
	case pdtRadarAnalysis, pdtRadarForecast:
		extra, err := parseStatProcExtra(tail, sec.Offset, tmpl == pdtRadarAnalysis)
		if err != nil {
			return ProductDefinition{}, err
		}
		pd.Extra = extra
	default:
		return ProductDefinition{}, errors.Wrapf(ErrUnknownParameter,
			"section 4 at %d: product definition template %d", sec.Offset, tmpl)
	}
	return pd, nil
}

func parseStatProcExtra(t []byte, off int, withRainGauge bool) (StatProcExtra, error) {
	want := statProcLen
	if withRainGauge {
		want += rainGaugeLen
	}
	if len(t) < want {
		return StatProcExtra{}, errors.Wrapf(ErrTruncatedMessage,
			"section 4 at %d: statistical tail needs %d bytes, got %d", off, want, len(t))
	}
	end, err := parseSectionTime(t[0:7])
	if err != nil {
		return StatProcExtra{}, errors.WithMessagef(err, "section 4 at %d: interval end", off)
	}
	extra := StatProcExtra{
		IntervalEnd:        end,
		TimeRangeSpecs:     t[7],
		MissingValues:      binary.BigEndian.Uint32(t[8:12]),
		StatProc:           t[12],
		StatProcIncrement:  t[13],
		StatProcTimeUnit:   t[14],
		StatProcTimeLength: binary.BigEndian.Uint32(t[15:19]),
		SuccessiveTimeUnit: t[19],
		SuccessiveTimeIncr: binary.BigEndian.Uint32(t[20:24]),
		RadarInfo1:         binary.BigEndian.Uint64(t[24:32]),
		RadarInfo2:         binary.BigEndian.Uint64(t[32:40]),
	}
	if withRainGauge {
		extra.RainGaugeInfo = binary.BigEndian.Uint64(t[40:48])
	}
	return extra, nil
}

func parseSourceDocExtra(t []byte, off int) (SourceDocExtra, error) {
	if len(t) < sourceDocLen {
		return SourceDocExtra{}, errors.Wrapf(ErrTruncatedMessage,
			"section 4 at %d: source document tail needs %d bytes, got %d",
			off, sourceDocLen, len(t))
	}
	return SourceDocExtra{
		SourceDocument1: t[0],
		HoursFromDoc1:   binary.BigEndian.Uint16(t[1:3]),
		MinutesFromDoc1: t[3],
		SourceDocument2: t[4],
		HoursFromDoc2:   binary.BigEndian.Uint16(t[5:7]),
		MinutesFromDoc2: t[7],
	}, nil
}

// parseSectionTime decodes the 7-byte datetime layout used across the
// producer's templates: year(2), month, day, hour, minute, second.
func parseSectionTime(b []byte) (time.Time, error) {
	month := time.Month(b[2])
	if month < time.January || month > time.December {
		return time.Time{}, errors.Wrapf(ErrTruncatedMessage, "month %d out of range", b[2])
	}
	return time.Date(int(binary.BigEndian.Uint16(b[0:2])), month,
		int(b[3]), int(b[4]), int(b[5]), int(b[6]), 0, time.UTC), nil
}
