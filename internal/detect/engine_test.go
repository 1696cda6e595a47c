package detect

import (
	"testing"

	"ahpbridge/internal/config"
	"ahpbridge/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const base = "http://server"

func affordances(t *testing.T, doc *document.Document) []string {
	t.Helper()
	var urls []string
	for _, n := range doc.Find("button." + AffordanceClass) {
		u, ok := doc.Attr(n, URLAttr)
		require.True(t, ok)
		urls = append(urls, u)
	}
	return urls
}

func TestPattern(t *testing.T) {
	p := Pattern("https://ahp.nuts.services/")
	require.NotNil(t, p)

	assert.Equal(t, "https://ahp.nuts.services/echo?text=hi",
		p.FindString("see (https://ahp.nuts.services/echo?text=hi) now"))
	assert.False(t, p.MatchString("https://ahpXnuts.services/echo"), "dots must be escaped")
	assert.False(t, p.MatchString("https://ahp.nuts.services/"))
	assert.Nil(t, Pattern(""))
}

func TestMatchText(t *testing.T) {
	e := NewEngine(WithBaseURL(base))
	got := e.MatchText("http://server/echo?text=hi and http://server/auth?token=x " +
		"and http://server/echo?text=hi again, http://server/weather?city=Paris\n" +
		"http://other/echo?text=no http://server/openapi.json")
	assert.Equal(t, []string{"http://server/echo?text=hi", "http://server/weather?city=Paris"}, got)

	assert.Nil(t, NewEngine().MatchText("http://server/echo"))
}

func TestAttach_InitialScan(t *testing.T) {
	doc, err := document.ParseString(`<html><body>
		<pre>curl http://server/echo?text=hi</pre>
		<p>http://server/plain_text_is_ignored</p>
	</body></html>`)
	require.NoError(t, err)

	e := NewEngine(WithBaseURL(base))
	found, detach := e.Attach(doc)
	defer detach()

	require.Len(t, found, 1)
	assert.Equal(t, "http://server/echo?text=hi", found[0].URL)
	assert.Equal(t, "pre", found[0].Source.Data)
	assert.Equal(t, []string{"http://server/echo?text=hi"}, affordances(t, doc))

	v, ok := doc.Attr(found[0].Source, ProcessedAttr)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	// The affordance sits right after its region.
	assert.Equal(t, found[0].Affordance, nextElement(found[0].Source))
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func TestAttach_InsertedMessageGetsOneAffordance(t *testing.T) {
	doc := document.New()
	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	var reported []DetectedCallURL
	e.OnDetect(func(_ *document.Document, c DetectedCallURL) { reported = append(reported, c) })

	nodes, err := doc.Append(doc.Body(), `<div class="message"><pre><code>http://server/echo?text=hi</code></pre></div>`)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://server/echo?text=hi"}, affordances(t, doc))
	require.Len(t, reported, 1)
	assert.Equal(t, "code", reported[0].Source.Data, "innermost region is scanned")
	btn := reported[0].Affordance
	require.NotNil(t, btn.PrevSibling)
	assert.Equal(t, "pre", btn.PrevSibling.Data, "affordance follows the code block")
	assert.Equal(t, "div", btn.Parent.Data)

	// Rescanning the processed node finds nothing new.
	assert.Empty(t, e.Scan(doc, nodes[0]))

	// Neither does moving it around the document.
	doc.Remove(nodes[0])
	doc.AppendNodes(doc.Body(), nodes[0])
	assert.Len(t, affordances(t, doc), 1)
	assert.Len(t, reported, 1)
}

func TestScan_NestedRegionsKeepOrderAfterOuterBlock(t *testing.T) {
	doc, err := document.ParseString(`<html><body><pre><code>http://server/first</code><code>http://server/second</code></pre></body></html>`)
	require.NoError(t, err)

	found, detach := NewEngine(WithBaseURL(base)).Attach(doc)
	defer detach()

	require.Len(t, found, 2)
	assert.Equal(t, []string{"http://server/first", "http://server/second"}, affordances(t, doc))
	for _, call := range found {
		assert.Equal(t, "body", call.Affordance.Parent.Data)
	}
	assert.Empty(t, doc.Find("pre button"))
}

func TestScan_DuplicatesAndReserved(t *testing.T) {
	doc := document.New()
	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	_, err := doc.Append(doc.Body(), `<pre>http://server/a?x=1 http://server/a?x=1 http://server/b http://server/health</pre>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://server/a?x=1", "http://server/b"}, affordances(t, doc))

	// Same URL in a different region gets its own affordance.
	_, err = doc.Append(doc.Body(), `<pre>http://server/a?x=1</pre>`)
	require.NoError(t, err)
	assert.Len(t, affordances(t, doc), 3)
}

func TestScan_OnlyInsertedSubtree(t *testing.T) {
	doc, err := document.ParseString(`<html><body><pre id="old"></pre></body></html>`)
	require.NoError(t, err)

	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	// A text change is not an insertion and the old region stays unscanned.
	old := doc.First("#old")
	doc.SetText(old, "http://server/late")
	_, err = doc.Append(doc.Body(), `<p>unrelated</p>`)
	require.NoError(t, err)
	assert.Empty(t, affordances(t, doc))
}

func TestScan_StreamedIntoEmptyRegion(t *testing.T) {
	doc := document.New()
	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	nodes, err := doc.Append(doc.Body(), `<pre></pre>`)
	require.NoError(t, err)
	pre := nodes[0]
	_, marked := doc.Attr(pre, ProcessedAttr)
	assert.False(t, marked, "empty regions stay eligible")

	_, err = doc.Append(pre, `<span>http://server/</span>`)
	require.NoError(t, err)
	// The span text alone is the bare base URL: no match yet.
	assert.Empty(t, affordances(t, doc))

	_, err = doc.Append(pre, `<span>echo?text=hi</span>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://server/echo?text=hi"}, affordances(t, doc))
}

func TestScan_SplitByInlineFormatting(t *testing.T) {
	doc := document.New()
	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	_, err := doc.Append(doc.Body(), `<code>http://server/<b>echo</b>?text=hi</code><code>http://server/</code><code>split</code>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://server/echo?text=hi"}, affordances(t, doc))
}

func TestScan_ProcessedRegionKeepsOriginalURL(t *testing.T) {
	doc := document.New()
	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()

	nodes, err := doc.Append(doc.Body(), `<pre>http://server/echo?text=hi</pre>`)
	require.NoError(t, err)

	doc.SetText(nodes[0], "http://server/echo?text=changed")
	assert.Empty(t, e.Scan(doc, nodes[0]))
	assert.Equal(t, []string{"http://server/echo?text=hi"}, affordances(t, doc))
}

func TestSetBaseURL_ReplacesPattern(t *testing.T) {
	doc, err := document.ParseString(`<html><body><pre>http://new/echo</pre><pre>http://server/echo</pre></body></html>`)
	require.NoError(t, err)

	e := NewEngine(WithBaseURL(base))
	_, detach := e.Attach(doc)
	defer detach()
	assert.Equal(t, []string{"http://server/echo"}, affordances(t, doc))

	e.SetBaseURL("http://new/")
	assert.Equal(t, "http://new", e.BaseURL())
	assert.ElementsMatch(t, []string{"http://server/echo", "http://new/echo"}, affordances(t, doc))

	// The old pattern no longer matches new content.
	_, err = doc.Append(doc.Body(), `<pre>http://server/other</pre>`)
	require.NoError(t, err)
	assert.Len(t, affordances(t, doc), 2)
	assert.Empty(t, e.MatchText("http://server/other"))
}

func TestEngine_IdleWithoutBaseURL(t *testing.T) {
	doc, err := document.ParseString(`<html><body><pre>http://server/echo</pre></body></html>`)
	require.NoError(t, err)

	e := NewEngine()
	found, detach := e.Attach(doc)
	defer detach()
	assert.Empty(t, found)

	e.SetBaseURL(base)
	assert.Equal(t, []string{"http://server/echo"}, affordances(t, doc))
}

func TestBind_FollowsConfiguration(t *testing.T) {
	m := config.NewStaticManager(config.Settings{ServerType: config.ServerTypeCustom, CustomServerURL: "http://one"})
	e := NewEngine()
	stop := e.Bind(m)
	defer stop()
	assert.Equal(t, "http://one", e.BaseURL())

	next := m.Current()
	next.CustomServerURL = "http://two/"
	m.Set(next)
	assert.Equal(t, "http://two", e.BaseURL())

	next.ServerType = config.ServerTypeDefault
	m.Set(next)
	assert.Equal(t, config.DefaultServerURL, e.BaseURL())
}

func TestWithCodeSelectors(t *testing.T) {
	doc, err := document.ParseString(`<html><body><div class="snippet">http://server/echo</div><pre>http://server/echo</pre></body></html>`)
	require.NoError(t, err)

	e := NewEngine(WithBaseURL(base), WithCodeSelectors([]string{"div.snippet"}))
	found, detach := e.Attach(doc)
	defer detach()

	require.Len(t, found, 1)
	assert.Equal(t, "div", found[0].Source.Data)
}
