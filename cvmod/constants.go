package cvmod

import "sort"

// StandardConstants holds the OpenCV values of every constant the binding
// reads. Backends built on OpenCV can serve Constant straight from this table.
var StandardConstants = map[string]int{
	// Colour conversion
	"COLOR_RGB2RGBA":  0,
	"COLOR_RGBA2RGB":  1,
	"COLOR_BGR2RGBA":  2,
	"COLOR_RGBA2BGR":  3,
	"COLOR_BGR2RGB":   4,
	"COLOR_RGB2BGR":   4,
	"COLOR_BGR2GRAY":  6,
	"COLOR_RGB2GRAY":  7,
	"COLOR_GRAY2BGR":  8,
	"COLOR_GRAY2RGBA": 9,
	"COLOR_RGBA2GRAY": 11,
	"COLOR_BGR2HSV":   40,
	"COLOR_RGB2HSV":   41,
	"COLOR_HSV2BGR":   54,
	"COLOR_HSV2RGB":   55,

	// Element types
	"CV_8U":    int(Depth8U),
	"CV_8S":    int(Depth8S),
	"CV_16U":   int(Depth16U),
	"CV_16S":   int(Depth16S),
	"CV_32S":   int(Depth32S),
	"CV_32F":   int(Depth32F),
	"CV_64F":   int(Depth64F),
	"CV_8UC1":  int(CV8UC1),
	"CV_8UC2":  int(CV8UC2),
	"CV_8UC3":  int(CV8UC3),
	"CV_8UC4":  int(CV8UC4),
	"CV_32SC2": int(CV32SC2),
	"CV_32FC1": int(CV32FC1),
	"CV_32FC2": int(CV32FC2),
	"CV_32FC3": int(CV32FC3),
	"CV_32FC4": int(CV32FC4),

	// Border types
	"BORDER_CONSTANT":    0,
	"BORDER_REPLICATE":   1,
	"BORDER_REFLECT":     2,
	"BORDER_WRAP":        3,
	"BORDER_REFLECT_101": 4,
	"BORDER_TRANSPARENT": 5,
	"BORDER_DEFAULT":     4,
	"BORDER_ISOLATED":    16,

	// Threshold types
	"THRESH_BINARY":     0,
	"THRESH_BINARY_INV": 1,
	"THRESH_TRUNC":      2,
	"THRESH_TOZERO":     3,
	"THRESH_TOZERO_INV": 4,
	"THRESH_OTSU":       8,
	"THRESH_TRIANGLE":   16,

	"ADAPTIVE_THRESH_MEAN_C":     0,
	"ADAPTIVE_THRESH_GAUSSIAN_C": 1,

	// Morphology
	"MORPH_RECT":     0,
	"MORPH_CROSS":    1,
	"MORPH_ELLIPSE":  2,
	"MORPH_ERODE":    0,
	"MORPH_DILATE":   1,
	"MORPH_OPEN":     2,
	"MORPH_CLOSE":    3,
	"MORPH_GRADIENT": 4,
	"MORPH_TOPHAT":   5,
	"MORPH_BLACKHAT": 6,

	// Interpolation
	"INTER_NEAREST":      0,
	"INTER_LINEAR":       1,
	"INTER_CUBIC":        2,
	"INTER_AREA":         3,
	"INTER_LANCZOS4":     4,
	"INTER_LINEAR_EXACT": 5,
	"INTER_MAX":          7,
	"WARP_FILL_OUTLIERS": 8,
	"WARP_INVERSE_MAP":   16,

	// Contours
	"RETR_EXTERNAL":          0,
	"RETR_LIST":              1,
	"RETR_CCOMP":             2,
	"RETR_TREE":              3,
	"CHAIN_APPROX_NONE":      1,
	"CHAIN_APPROX_SIMPLE":    2,
	"CHAIN_APPROX_TC89_L1":   3,
	"CHAIN_APPROX_TC89_KCOS": 4,

	// Fonts
	"FONT_HERSHEY_SIMPLEX":        0,
	"FONT_HERSHEY_PLAIN":          1,
	"FONT_HERSHEY_DUPLEX":         2,
	"FONT_HERSHEY_COMPLEX":        3,
	"FONT_HERSHEY_TRIPLEX":        4,
	"FONT_HERSHEY_COMPLEX_SMALL":  5,
	"FONT_HERSHEY_SCRIPT_SIMPLEX": 6,
	"FONT_HERSHEY_SCRIPT_COMPLEX": 7,
	"FONT_ITALIC":                 16,

	// Line types
	"FILLED":  -1,
	"LINE_4":  4,
	"LINE_8":  8,
	"LINE_AA": 16,
}

// RequiredConstants returns, sorted, the names a module must define before it
// can be registered with the binding.
func RequiredConstants() []string {
	names := make([]string, 0, len(StandardConstants))
	for name := range StandardConstants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingConstants returns the required names m does not define.
func MissingConstants(m Module) []string {
	var missing []string
	for _, name := range RequiredConstants() {
		if _, ok := m.Constant(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
