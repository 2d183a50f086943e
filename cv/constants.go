package cv

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownConstant is returned when a name is not part of a table.
var ErrUnknownConstant = errors.New("cv: unknown constant")

// Const is the name of a numeric constant exported by the foreign module.
// Values are read from the module, never hard-coded, so a backend built
// against another library version keeps working.
type Const string

// Code returns the module's value for c. Every Const declared in this
// package is checked for presence when the runtime is created; use Resolve
// for names that come from callers.
func (rt *Runtime) Code(c Const) int {
	v, _ := rt.module.Constant(string(c))
	return v
}

// Resolve returns the module's value for c, or ErrUnknownConstant when the
// module does not define it.
func (rt *Runtime) Resolve(c Const) (int, error) {
	v, ok := rt.module.Constant(string(c))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownConstant, string(c))
	}
	return v, nil
}

// Colour conversion codes.
const (
	ColorRGB2RGBA  Const = "COLOR_RGB2RGBA"
	ColorRGBA2RGB  Const = "COLOR_RGBA2RGB"
	ColorBGR2RGBA  Const = "COLOR_BGR2RGBA"
	ColorRGBA2BGR  Const = "COLOR_RGBA2BGR"
	ColorBGR2RGB   Const = "COLOR_BGR2RGB"
	ColorRGB2BGR   Const = "COLOR_RGB2BGR"
	ColorBGR2Gray  Const = "COLOR_BGR2GRAY"
	ColorRGB2Gray  Const = "COLOR_RGB2GRAY"
	ColorGray2BGR  Const = "COLOR_GRAY2BGR"
	ColorGray2RGBA Const = "COLOR_GRAY2RGBA"
	ColorRGBA2Gray Const = "COLOR_RGBA2GRAY"
	ColorBGR2HSV   Const = "COLOR_BGR2HSV"
	ColorRGB2HSV   Const = "COLOR_RGB2HSV"
	ColorHSV2BGR   Const = "COLOR_HSV2BGR"
	ColorHSV2RGB   Const = "COLOR_HSV2RGB"
)

// Element types.
const (
	CV8U    Const = "CV_8U"
	CV8S    Const = "CV_8S"
	CV16U   Const = "CV_16U"
	CV16S   Const = "CV_16S"
	CV32S   Const = "CV_32S"
	CV32F   Const = "CV_32F"
	CV64F   Const = "CV_64F"
	CV8UC1  Const = "CV_8UC1"
	CV8UC2  Const = "CV_8UC2"
	CV8UC3  Const = "CV_8UC3"
	CV8UC4  Const = "CV_8UC4"
	CV32SC2 Const = "CV_32SC2"
	CV32FC1 Const = "CV_32FC1"
	CV32FC2 Const = "CV_32FC2"
	CV32FC3 Const = "CV_32FC3"
	CV32FC4 Const = "CV_32FC4"
)

// Border types.
const (
	BorderConstant    Const = "BORDER_CONSTANT"
	BorderReplicate   Const = "BORDER_REPLICATE"
	BorderReflect     Const = "BORDER_REFLECT"
	BorderWrap        Const = "BORDER_WRAP"
	BorderReflect101  Const = "BORDER_REFLECT_101"
	BorderTransparent Const = "BORDER_TRANSPARENT"
	BorderDefault     Const = "BORDER_DEFAULT"
	BorderIsolated    Const = "BORDER_ISOLATED"
)

// Threshold types.
const (
	ThreshBinary    Const = "THRESH_BINARY"
	ThreshBinaryInv Const = "THRESH_BINARY_INV"
	ThreshTrunc     Const = "THRESH_TRUNC"
	ThreshToZero    Const = "THRESH_TOZERO"
	ThreshToZeroInv Const = "THRESH_TOZERO_INV"
	ThreshOtsu      Const = "THRESH_OTSU"
	ThreshTriangle  Const = "THRESH_TRIANGLE"

	AdaptiveThreshMeanC     Const = "ADAPTIVE_THRESH_MEAN_C"
	AdaptiveThreshGaussianC Const = "ADAPTIVE_THRESH_GAUSSIAN_C"
)

// Morphology shapes and operations.
const (
	MorphRect     Const = "MORPH_RECT"
	MorphCross    Const = "MORPH_CROSS"
	MorphEllipse  Const = "MORPH_ELLIPSE"
	MorphErode    Const = "MORPH_ERODE"
	MorphDilate   Const = "MORPH_DILATE"
	MorphOpen     Const = "MORPH_OPEN"
	MorphClose    Const = "MORPH_CLOSE"
	MorphGradient Const = "MORPH_GRADIENT"
	MorphTophat   Const = "MORPH_TOPHAT"
	MorphBlackhat Const = "MORPH_BLACKHAT"
)

// Interpolation flags.
const (
	InterNearest     Const = "INTER_NEAREST"
	InterLinear      Const = "INTER_LINEAR"
	InterCubic       Const = "INTER_CUBIC"
	InterArea        Const = "INTER_AREA"
	InterLanczos4    Const = "INTER_LANCZOS4"
	InterLinearExact Const = "INTER_LINEAR_EXACT"
	InterMax         Const = "INTER_MAX"
	WarpFillOutliers Const = "WARP_FILL_OUTLIERS"
	WarpInverseMap   Const = "WARP_INVERSE_MAP"
)

// Contour retrieval modes and approximation methods.
const (
	RetrExternal        Const = "RETR_EXTERNAL"
	RetrList            Const = "RETR_LIST"
	RetrCComp           Const = "RETR_CCOMP"
	RetrTree            Const = "RETR_TREE"
	ChainApproxNone     Const = "CHAIN_APPROX_NONE"
	ChainApproxSimple   Const = "CHAIN_APPROX_SIMPLE"
	ChainApproxTC89L1   Const = "CHAIN_APPROX_TC89_L1"
	ChainApproxTC89KCOS Const = "CHAIN_APPROX_TC89_KCOS"
)

// Fonts and line types.
const (
	FontHersheySimplex       Const = "FONT_HERSHEY_SIMPLEX"
	FontHersheyPlain         Const = "FONT_HERSHEY_PLAIN"
	FontHersheyDuplex        Const = "FONT_HERSHEY_DUPLEX"
	FontHersheyComplex       Const = "FONT_HERSHEY_COMPLEX"
	FontHersheyTriplex       Const = "FONT_HERSHEY_TRIPLEX"
	FontHersheyComplexSmall  Const = "FONT_HERSHEY_COMPLEX_SMALL"
	FontHersheyScriptSimplex Const = "FONT_HERSHEY_SCRIPT_SIMPLEX"
	FontHersheyScriptComplex Const = "FONT_HERSHEY_SCRIPT_COMPLEX"
	FontItalic               Const = "FONT_ITALIC"

	Filled Const = "FILLED"
	Line4  Const = "LINE_4"
	Line8  Const = "LINE_8"
	LineAA Const = "LINE_AA"
)

// ConstantEntry is one resolved table entry.
type ConstantEntry struct {
	Name string // short name, e.g. "RGBA2GRAY"
	Code int
}

// ConstantTable is a family of constants sharing a name prefix. Lookups
// accept the short name or the full name, in any case.
type ConstantTable struct {
	prefix string
	consts []Const
}

func newTable(prefix string, consts ...Const) ConstantTable {
	return ConstantTable{prefix: prefix, consts: consts}
}

// Constant families, mirroring the groups of the foreign module.
var (
	ColorConversion = newTable("COLOR_",
		ColorRGB2RGBA, ColorRGBA2RGB, ColorBGR2RGBA, ColorRGBA2BGR, ColorBGR2RGB, ColorRGB2BGR,
		ColorBGR2Gray, ColorRGB2Gray, ColorGray2BGR, ColorGray2RGBA, ColorRGBA2Gray,
		ColorBGR2HSV, ColorRGB2HSV, ColorHSV2BGR, ColorHSV2RGB)
	DataTypes = newTable("CV_",
		CV8U, CV8S, CV16U, CV16S, CV32S, CV32F, CV64F,
		CV8UC1, CV8UC2, CV8UC3, CV8UC4, CV32SC2, CV32FC1, CV32FC2, CV32FC3, CV32FC4)
	Border = newTable("BORDER_",
		BorderConstant, BorderReplicate, BorderReflect, BorderWrap,
		BorderReflect101, BorderTransparent, BorderDefault, BorderIsolated)
	Threshold = newTable("THRESH_",
		ThreshBinary, ThreshBinaryInv, ThreshTrunc, ThreshToZero, ThreshToZeroInv, ThreshOtsu, ThreshTriangle)
	AdaptiveMethod = newTable("ADAPTIVE_THRESH_",
		AdaptiveThreshMeanC, AdaptiveThreshGaussianC)
	MorphShape = newTable("MORPH_", MorphRect, MorphCross, MorphEllipse)
	MorphOp    = newTable("MORPH_",
		MorphErode, MorphDilate, MorphOpen, MorphClose, MorphGradient, MorphTophat, MorphBlackhat)
	Interpolation = newTable("",
		InterNearest, InterLinear, InterCubic, InterArea, InterLanczos4, InterLinearExact,
		InterMax, WarpFillOutliers, WarpInverseMap)
	ContourRetrieval     = newTable("RETR_", RetrExternal, RetrList, RetrCComp, RetrTree)
	ContourApproximation = newTable("CHAIN_APPROX_",
		ChainApproxNone, ChainApproxSimple, ChainApproxTC89L1, ChainApproxTC89KCOS)
	FontFace = newTable("FONT_",
		FontHersheySimplex, FontHersheyPlain, FontHersheyDuplex, FontHersheyComplex, FontHersheyTriplex,
		FontHersheyComplexSmall, FontHersheyScriptSimplex, FontHersheyScriptComplex, FontItalic)
	LineType = newTable("", Filled, Line4, Line8, LineAA)
)

func (t ConstantTable) short(c Const) string {
	return strings.TrimPrefix(string(c), t.prefix)
}

// Names returns the short names of the table, sorted.
func (t ConstantTable) Names() []string {
	names := make([]string, len(t.consts))
	for i, c := range t.consts {
		names[i] = t.short(c)
	}
	sort.Strings(names)
	return names
}

// Find returns the Const matching name.
func (t ConstantTable) Find(name string) (Const, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, c := range t.consts {
		if upper == string(c) || upper == t.short(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownConstant, name, strings.Join(t.Names(), ", "))
}

// LookupIn resolves name to its numeric value in rt's module.
func (t ConstantTable) LookupIn(rt *Runtime, name string) (int, error) {
	c, err := t.Find(name)
	if err != nil {
		return 0, err
	}
	return rt.Resolve(c)
}

// Lookup resolves name through the registered module.
func (t ConstantTable) Lookup(name string) (int, error) {
	rt, err := Default()
	if err != nil {
		return 0, err
	}
	return t.LookupIn(rt, name)
}

// Entries resolves every constant of the table in rt's module.
func (t ConstantTable) Entries(rt *Runtime) []ConstantEntry {
	out := make([]ConstantEntry, len(t.consts))
	for i, c := range t.consts {
		out[i] = ConstantEntry{Name: t.short(c), Code: rt.Code(c)}
	}
	return out
}
