package updater

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
)

// Element and property names of the JMX structure the updater relies on.
const (
	rootTag        = "jmeterTestPlan"
	threadGroupTag = "ThreadGroup"
	hashTreeTag    = "hashTree"
	samplerTag     = "HTTPSamplerProxy"

	propPath     = "HTTPSampler.path"
	propMethod   = "HTTPSampler.method"
	propComments = "TestPlan.comments"

	// DisabledComment is stamped on samplers whose endpoint was removed.
	DisabledComment = "Disabled - endpoint removed from OpenAPI spec"
)

var jmeterVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// IndexPath converts a sampler path to spec form: ${id} becomes {id}.
func IndexPath(samplerPath string) string {
	return jmeterVar.ReplaceAllString(samplerPath, "{$1}")
}

// SamplerPath converts a spec path to sampler form: {id} becomes ${id}.
func SamplerPath(specPath string) string {
	var b strings.Builder
	for i := 0; i < len(specPath); i++ {
		if specPath[i] == '{' && (i == 0 || specPath[i-1] != '$') {
			b.WriteByte('$')
		}
		b.WriteByte(specPath[i])
	}
	return b.String()
}

// ExpectedStatus is the status code asserted by a generated sampler.
func ExpectedStatus(method string) string {
	switch strings.ToUpper(method) {
	case "POST":
		return "201"
	case "DELETE":
		return "204"
	default:
		return "200"
	}
}

func stringProp(parent *etree.Element, name string) *etree.Element {
	return parent.FindElement("./stringProp[@name='" + name + "']")
}

// samplerKey reads the (path, METHOD) identity of a sampler. An empty method
// means GET. ok is false when either property is missing.
func samplerKey(sampler *etree.Element) (apispec.Key, bool) {
	pathEl := stringProp(sampler, propPath)
	methodEl := stringProp(sampler, propMethod)
	if pathEl == nil || methodEl == nil {
		return apispec.Key{}, false
	}
	method := strings.ToUpper(strings.TrimSpace(methodEl.Text()))
	if method == "" {
		method = "GET"
	}
	return apispec.Key{Path: IndexPath(strings.TrimSpace(pathEl.Text())), Method: method}, true
}

// findThreadGroupTree returns the hashTree following the first ThreadGroup
// that has one.
func findThreadGroupTree(root *etree.Element) *etree.Element {
	for _, tg := range root.FindElements(".//" + threadGroupTag) {
		if next := tg.NextSibling(); next != nil && next.Tag == hashTreeTag {
			return next
		}
	}
	return nil
}

func addProp(parent *etree.Element, tag, name, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.CreateAttr("name", name)
	if text != "" {
		el.SetText(text)
	}
	return el
}

// appendSampler adds a sampler for e followed by its hashTree holding the
// default response code assertion.
func appendSampler(tree *etree.Element, e apispec.Endpoint) *etree.Element {
	key := e.Key()
	name := e.OperationID
	if name == "" {
		name = key.String()
	}

	sampler := tree.CreateElement(samplerTag)
	sampler.CreateAttr("guiclass", "HttpTestSampleGui")
	sampler.CreateAttr("testclass", samplerTag)
	sampler.CreateAttr("testname", name)
	sampler.CreateAttr("enabled", "true")

	addArguments(sampler, e.Parameters)
	addProp(sampler, "stringProp", "HTTPSampler.domain", "")
	addProp(sampler, "stringProp", "HTTPSampler.port", "")
	addProp(sampler, "stringProp", "HTTPSampler.protocol", "")
	addProp(sampler, "stringProp", propPath, SamplerPath(key.Path))
	addProp(sampler, "stringProp", propMethod, key.Method)
	addProp(sampler, "boolProp", "HTTPSampler.follow_redirects", "true")
	addProp(sampler, "boolProp", "HTTPSampler.auto_redirects", "false")
	addProp(sampler, "boolProp", "HTTPSampler.use_keepalive", "true")

	samplerTree := tree.CreateElement(hashTreeTag)
	addResponseAssertion(samplerTree, ExpectedStatus(key.Method))
	return sampler
}

// addArguments writes query parameters as ${name} HTTP arguments.
func addArguments(sampler *etree.Element, params []apispec.Parameter) {
	args := sampler.CreateElement("elementProp")
	args.CreateAttr("name", "HTTPsampler.Arguments")
	args.CreateAttr("elementType", "Arguments")
	args.CreateAttr("guiclass", "HTTPArgumentsPanel")
	args.CreateAttr("testclass", "Arguments")
	args.CreateAttr("testname", "User Defined Variables")
	args.CreateAttr("enabled", "true")
	coll := args.CreateElement("collectionProp")
	coll.CreateAttr("name", "Arguments.arguments")

	for _, p := range params {
		if p.In != apispec.InQuery {
			continue
		}
		arg := coll.CreateElement("elementProp")
		arg.CreateAttr("name", p.Name)
		arg.CreateAttr("elementType", "HTTPArgument")
		addProp(arg, "boolProp", "HTTPArgument.always_encode", "false")
		addProp(arg, "stringProp", "Argument.name", p.Name)
		addProp(arg, "stringProp", "Argument.value", "${"+p.Name+"}")
		addProp(arg, "stringProp", "Argument.metadata", "=")
		addProp(arg, "boolProp", "HTTPArgument.use_equals", "true")
	}
}

func addResponseAssertion(tree *etree.Element, code string) {
	a := tree.CreateElement("ResponseAssertion")
	a.CreateAttr("guiclass", "AssertionGui")
	a.CreateAttr("testclass", "ResponseAssertion")
	a.CreateAttr("testname", "Response Code "+code)
	a.CreateAttr("enabled", "true")

	addProp(a, "stringProp", "Assertion.test_field", "Assertion.response_code")
	addProp(a, "intProp", "Assertion.test_type", "16")
	// JMeter's own property name carries the typo.
	coll := addProp(a, "collectionProp", "Asserion.test_strings", "")
	s := coll.CreateElement("stringProp")
	s.CreateAttr("name", "")
	s.SetText(code)
	addProp(a, "boolProp", "Assertion.assume_success", "false")

	tree.CreateElement(hashTreeTag)
}

func disableSampler(sampler *etree.Element) {
	sampler.CreateAttr("enabled", "false")
	comment := stringProp(sampler, propComments)
	if comment == nil {
		comment = addProp(sampler, "stringProp", propComments, "")
	}
	comment.SetText(DisabledComment)
}

// enableSampler undoes disableSampler. It reports false when the sampler was
// not disabled. Comments other than DisabledComment are kept.
func enableSampler(sampler *etree.Element) bool {
	if sampler.SelectAttrValue("enabled", "true") != "false" {
		return false
	}
	sampler.CreateAttr("enabled", "true")
	if comment := stringProp(sampler, propComments); comment != nil && comment.Text() == DisabledComment {
		comment.SetText("")
	}
	return true
}

// ensureDeclaration puts an XML declaration at the top of doc if it has none.
func ensureDeclaration(doc *etree.Document) {
	for _, t := range doc.Child {
		if p, ok := t.(*etree.ProcInst); ok && p.Target == "xml" {
			return
		}
	}
	doc.InsertChildAt(0, etree.NewProcInst("xml", `version="1.0" encoding="UTF-8"`))
}
