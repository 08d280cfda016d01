package models

// TargetSpec is the caller-facing view of the listing being priced
type TargetSpec struct {
	Title        string   `json:"title"`
	Location     string   `json:"location"`
	PropertyType string   `json:"propertyType"`
	Accommodates *int     `json:"accommodates"`
	Bedrooms     *int     `json:"bedrooms"`
	Beds         *int     `json:"beds"`
	Baths        *float64 `json:"baths"`
	Amenities    []string `json:"amenities"`
	Rating       *float64 `json:"rating"`
	Reviews      *int     `json:"reviews"`
}

// QueryCriteria records how the marketplace was queried
type QueryCriteria struct {
	LocationBasis      string `json:"locationBasis"`
	SearchAdults       int    `json:"searchAdults"`
	Checkin            string `json:"checkin"`
	Checkout           string `json:"checkout"`
	TotalNights        int    `json:"totalNights"`
	SampledNights      int    `json:"sampledNights"`
	QueryMode          string `json:"queryMode"`
	PropertyTypeFilter string `json:"propertyTypeFilter,omitempty"`
}

// CompsSummary aggregates comparable counts across the queried nights
type CompsSummary struct {
	Collected        int      `json:"collected"`
	AfterFiltering   int      `json:"afterFiltering"`
	UsedForPricing   int      `json:"usedForPricing"`
	FilterStage      string   `json:"filterStage"`
	FilterStages     []string `json:"filterStages"`
	SampledDays      int      `json:"sampledDays"`
	InterpolatedDays int      `json:"interpolatedDays"`
	MissingDays      int      `json:"missingDays"`
}

// PriceSummary is the overall price distribution of a run
type PriceSummary struct {
	PriceDistribution
	Currency string `json:"currency"`
}

// RecommendedPrice is the headline recommendation of a run
type RecommendedPrice struct {
	Nightly         *float64 `json:"nightly"`
	WeekdayEstimate *int     `json:"weekdayEstimate"`
	WeekendEstimate *int     `json:"weekendEstimate"`
	DiscountApplied float64  `json:"discountApplied"`
	Notes           string   `json:"notes"`
}

// DayQueryStats counts nights by how their price was obtained
type DayQueryStats struct {
	TotalNights     int `json:"totalNights"`
	Sampled         int `json:"sampled"`
	Interpolated    int `json:"interpolated"`
	Missing         int `json:"missing"`
	ValidPriceCount int `json:"validPriceCount"`
}

// ResultDebug is the debug trace of a run
type ResultDebug struct {
	Source             string           `json:"source"`
	ExtractionWarnings []string         `json:"extractionWarnings"`
	TimingsMs          map[string]int64 `json:"timingsMs"`
	PipelineVersion    string           `json:"pipelineVersion"`
	DayQueryStats      DayQueryStats    `json:"dayQueryStats"`
	AnchorURL          string           `json:"anchorUrl,omitempty"`
	AnchorScore        *float64         `json:"anchorScore,omitempty"`
	InitialCandidates  int              `json:"initialCandidates,omitempty"`
	Degraded           string           `json:"degraded,omitempty"`
}

// TransparentResult is everything a pricing run hands back to its caller.
type TransparentResult struct {
	TargetSpec         TargetSpec       `json:"targetSpec"`
	QueryCriteria      QueryCriteria    `json:"queryCriteria"`
	CompsSummary       CompsSummary     `json:"compsSummary"`
	PriceDistribution  PriceSummary     `json:"priceDistribution"`
	RecommendedPrice   RecommendedPrice `json:"recommendedPrice"`
	ComparableListings []Comparable     `json:"comparableListings"`
	Debug              ResultDebug      `json:"debug"`
}

// Confidence of a demand estimate
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// DynamicAdjustment is the demand and lead-time multiplier for one night
type DynamicAdjustment struct {
	DemandScore      float64    `json:"demandScore"`
	Confidence       Confidence `json:"confidence"`
	TimeMultiplier   float64    `json:"timeMultiplier"`
	DemandAdjustment float64    `json:"demandAdjustment"`
	FinalMultiplier  float64    `json:"finalMultiplier"`
	Reasons          []string   `json:"reasons"`
}

// CalendarDay is one output row of the nightly calendar.
//
// BasePrice and the refundable/non-refundable prices stay numeric even for
// nights without data (they fall back to the overall median); the
// Effective* fields are nil in that case.
type CalendarDay struct {
	Date                             string            `json:"date"`
	DayOfWeek                        string            `json:"dayOfWeek"`
	IsWeekend                        bool              `json:"isWeekend"`
	BasePrice                        int               `json:"basePrice"`
	RefundablePrice                  int               `json:"refundablePrice"`
	NonRefundablePrice               int               `json:"nonRefundablePrice"`
	BaseDailyPrice                   *int              `json:"baseDailyPrice"`
	DynamicAdjustment                DynamicAdjustment `json:"dynamicAdjustment"`
	LastMinuteMultiplier             float64           `json:"lastMinuteMultiplier"`
	PriceAfterTimeAdjustment         *int              `json:"priceAfterTimeAdjustment"`
	EffectiveDailyPriceRefundable    *int              `json:"effectiveDailyPriceRefundable"`
	EffectiveDailyPriceNonRefundable *int              `json:"effectiveDailyPriceNonRefundable"`
	Flags                            []string          `json:"flags"`
}

// StayLengthAverage is the average refundable nightly price for a stay length
type StayLengthAverage struct {
	Nights            int     `json:"nights"`
	AvgNightly        int     `json:"avgNightly"`
	LengthDiscountPct float64 `json:"lengthDiscountPct"`
}

// Summary is the report summary stored on the job and in the cache.
type Summary struct {
	InsightHeadline         string              `json:"insightHeadline"`
	NightlyMin              int                 `json:"nightlyMin"`
	NightlyMedian           int                 `json:"nightlyMedian"`
	NightlyMax              int                 `json:"nightlyMax"`
	OccupancyPct            int                 `json:"occupancyPct"`
	WeekdayAvg              int                 `json:"weekdayAvg"`
	WeekendAvg              int                 `json:"weekendAvg"`
	EstimatedMonthlyRevenue int                 `json:"estimatedMonthlyRevenue"`
	WeeklyStayAvgNightly    int                 `json:"weeklyStayAvgNightly"`
	MonthlyStayAvgNightly   int                 `json:"monthlyStayAvgNightly"`
	SelectedRangeNights     int                 `json:"selectedRangeNights"`
	SelectedRangeAvgNightly int                 `json:"selectedRangeAvgNightly"`
	StayLengthAverages      []StayLengthAverage `json:"stayLengthAverages"`

	TargetSpec         *TargetSpec       `json:"targetSpec,omitempty"`
	QueryCriteria      *QueryCriteria    `json:"queryCriteria,omitempty"`
	CompsSummary       *CompsSummary     `json:"compsSummary,omitempty"`
	PriceDistribution  *PriceSummary     `json:"priceDistribution,omitempty"`
	RecommendedPrice   *RecommendedPrice `json:"recommendedPrice,omitempty"`
	ComparableListings []Comparable      `json:"comparableListings,omitempty"`
}
