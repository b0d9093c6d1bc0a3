package validator

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

const (
	propNumThreads = "ThreadGroup.num_threads"
	propRampTime   = "ThreadGroup.ramp_time"
	propScheduler  = "ThreadGroup.scheduler"
	propDuration   = "ThreadGroup.duration"
	propLoops      = "LoopController.loops"

	// lowThreadCount is the thread count below which a plan is considered
	// too small for a load test.
	lowThreadCount = 10
)

// Result is the outcome of validating one plan.
type Result struct {
	// Valid is true when Issues is empty. Recommendations never affect it.
	Valid           bool     `json:"valid"           yaml:"valid"`
	Path            string   `json:"path,omitempty"  yaml:"path,omitempty"`
	Samplers        int      `json:"samplers"        yaml:"samplers"`
	Issues          []string `json:"issues"          yaml:"issues"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

func (r *Result) issuef(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

func (r *Result) recommendf(format string, args ...any) {
	r.Recommendations = append(r.Recommendations, fmt.Sprintf(format, args...))
}

// Validator checks JMeter plans.
type Validator struct {
	logger logging.Logger
}

// Option is a function that configures a Validator
type Option func(*config) error

type config struct {
	logger logging.Logger
}

// WithLogger sets the validator's logger.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// New creates a Validator.
func New(opts ...Option) (*Validator, error) {
	cfg := &config{logger: logging.NopLogger{}}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("validator: invalid options: %w", err)
		}
	}
	return &Validator{logger: cfg.logger}, nil
}

// ValidateFile validates the plan at path with a default Validator.
func ValidateFile(path string) (*Result, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return v.ValidateFile(path)
}

// ValidateFile reads and validates the plan at path. A missing file is
// returned as an error wrapping fs.ErrNotExist; markup that cannot be read
// as XML is a *jmxerrors.ParseError. Every other problem is reported in the
// result.
func (v *Validator) ValidateFile(path string) (*Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304 - plan path is user input by design
	if err != nil {
		return nil, fmt.Errorf("validator: reading plan: %w", err)
	}
	return v.ValidateData(data, path)
}

// ValidateData validates plan bytes. name is used in errors and the result.
func (v *Validator) ValidateData(data []byte, name string) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &jmxerrors.ParseError{Path: name, Message: "invalid XML", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &jmxerrors.ParseError{Path: name, Message: "document has no root element"}
	}

	result := &Result{Path: name, Issues: []string{}, Recommendations: []string{}}
	if checkStructure(root, result) {
		checkThreadGroup(root, result)
		checkSamplers(root, result)
		addRecommendations(root, result)
	}
	result.Valid = len(result.Issues) == 0
	v.logger.Info("plan validated",
		"path", name,
		"valid", result.Valid,
		"issues", len(result.Issues),
		"samplers", result.Samplers)
	return result, nil
}

// checkStructure reports missing top-level elements. It returns false when
// the root is not a test plan and nothing else can be checked.
func checkStructure(root *etree.Element, result *Result) bool {
	if root.Tag != "jmeterTestPlan" {
		result.issuef("Root element must be 'jmeterTestPlan' (found: '%s')", root.Tag)
		return false
	}
	if root.FindElement(".//TestPlan") == nil {
		result.issuef("Missing TestPlan element")
	}
	if root.FindElement(".//ThreadGroup") == nil {
		result.issuef("Missing ThreadGroup element")
	}
	if root.FindElement("./hashTree") == nil {
		result.issuef("Missing main hashTree element after jmeterTestPlan")
	}
	return true
}

func checkThreadGroup(root *etree.Element, result *Result) {
	tg := root.FindElement(".//ThreadGroup")
	if tg == nil {
		return
	}

	if threads := prop(tg, "stringProp", propNumThreads); threads == nil {
		result.issuef("ThreadGroup missing 'num_threads' configuration")
	} else if text := strings.TrimSpace(threads.Text()); !isVariable(text) {
		n, err := strconv.Atoi(text)
		switch {
		case err != nil:
			result.issuef("ThreadGroup 'num_threads' must be a valid number (found: '%s')", text)
		case n <= 0:
			result.issuef("ThreadGroup 'num_threads' must be > 0 (found: %d)", n)
		}
	}

	if prop(tg, "stringProp", propRampTime) == nil {
		result.issuef("ThreadGroup missing 'ramp_time' configuration")
	}

	scheduler := prop(tg, "boolProp", propScheduler)
	hasScheduler := scheduler != nil && strings.TrimSpace(scheduler.Text()) == "true"
	hasLoops := prop(tg, "stringProp", propLoops) != nil
	if !hasScheduler && !hasLoops {
		result.issuef("ThreadGroup must have either scheduler enabled or loop count configured")
	}
	if hasScheduler && prop(tg, "stringProp", propDuration) == nil {
		result.issuef("ThreadGroup has scheduler enabled but missing 'duration' configuration")
	}
}

func checkSamplers(root *etree.Element, result *Result) {
	samplers := root.FindElements(".//HTTPSamplerProxy")
	result.Samplers = len(samplers)
	if len(samplers) == 0 {
		result.issuef("No HTTP samplers found in test plan")
		return
	}

	hasDefaults := httpDefaults(root) != nil
	for i, sampler := range samplers {
		name := sampler.SelectAttrValue("testname", fmt.Sprintf("Sampler #%d", i+1))
		if !hasText(prop(sampler, "stringProp", "HTTPSampler.path")) {
			result.issuef("Sampler '%s' missing path configuration", name)
		}
		if !hasText(prop(sampler, "stringProp", "HTTPSampler.method")) {
			result.issuef("Sampler '%s' missing HTTP method", name)
		}
		if !hasDefaults && !hasText(prop(sampler, "stringProp", "HTTPSampler.domain")) {
			result.issuef("Sampler '%s' has no domain and no HTTP Request Defaults found", name)
		}
	}
}

func addRecommendations(root *etree.Element, result *Result) {
	if root.FindElement(".//CSVDataSet") == nil {
		result.recommendf("Consider adding CSV Data Set Config for parameterized test data")
	}
	if root.FindElement(".//ResultCollector") == nil {
		result.recommendf("Consider adding listeners (View Results Tree, Summary Report) for result analysis")
	}
	if root.FindElement(".//ConstantTimer") == nil && root.FindElement(".//UniformRandomTimer") == nil {
		result.recommendf("Consider adding timers to simulate realistic user think time")
	}
	hasAssertions := root.FindElement(".//ResponseAssertion") != nil
	if hasAssertions && root.FindElement(".//DurationAssertion") == nil {
		result.recommendf("Consider adding Duration Assertions for performance validation")
	}
	if httpDefaults(root) == nil {
		result.recommendf("Consider using HTTP Request Defaults to centralize server configuration")
	}
	if root.FindElement(".//HeaderManager") == nil {
		result.recommendf("Consider adding Header Manager for Content-Type and other headers")
	}
	if tg := root.FindElement(".//ThreadGroup"); tg != nil {
		if threads := prop(tg, "stringProp", propNumThreads); threads != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(threads.Text())); err == nil && n < lowThreadCount {
				result.recommendf("Thread count is low (%d). Consider increasing for realistic load testing", n)
			}
		}
	}
	if result.Samplers > 0 && !hasAssertions {
		result.recommendf("No assertions found. Consider adding assertions to validate responses")
	}
}

// prop finds a named property anywhere below parent, so properties nested in
// the thread group's loop controller are found too.
func prop(parent *etree.Element, tag, name string) *etree.Element {
	return parent.FindElement(".//" + tag + "[@name='" + name + "']")
}

func httpDefaults(root *etree.Element) *etree.Element {
	return root.FindElement(".//ConfigTestElement[@testclass='ConfigTestElement']")
}

func hasText(el *etree.Element) bool {
	return el != nil && strings.TrimSpace(el.Text()) != ""
}

// isVariable reports whether text is resolved by JMeter at run time, as in
// ${__P(threads,10)}.
func isVariable(text string) bool {
	return strings.Contains(text, "${")
}
