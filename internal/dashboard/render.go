package dashboard

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Region headings.
const (
	headingMetrics  = "Latest Metrics"
	headingRegistry = "Registry"
	headingDeployed = "Deployed Model"
	headingAlerts   = "Approvals & Drift"

	noneText    = "none"
	errorPrefix = "Unable to load dashboard: "
	errorClass  = "error"
)

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// section is a heading followed by a preformatted block.
func section(heading, body string) []*html.Node {
	return []*html.Node{
		element(atom.H2, nil, text(heading)),
		element(atom.Pre, nil, text(body)),
	}
}

func errorParagraph(err error) *html.Node {
	return element(atom.P,
		[]html.Attribute{{Key: "class", Val: errorClass}},
		text(errorPrefix+err.Error()),
	)
}

// regionSet holds the four located display regions.
type regionSet struct {
	metrics  *Region
	registry *Region
	deployed *Region
	alerts   *Region
}

func locate(doc *Document) (regionSet, error) {
	var set regionSet
	targets := map[string]**Region{
		RegionMetrics:  &set.metrics,
		RegionRegistry: &set.registry,
		RegionDeployed: &set.deployed,
		RegionAlerts:   &set.alerts,
	}
	for _, id := range Regions {
		r, err := doc.Region(id)
		if err != nil {
			return regionSet{}, err
		}
		*targets[id] = r
	}
	return set, nil
}

// render writes every region from a decoded snapshot.
func (s regionSet) render(snap Snapshot) {
	s.metrics.Replace(section(headingMetrics, snap.LatestMetrics.Pretty())...)
	s.registry.Replace(section(headingRegistry, snap.Registry.Pretty())...)
	s.deployed.Replace(section(headingDeployed, snap.Deployed())...)
	s.alerts.Replace(section(headingAlerts, snap.Alerts().Pretty())...)
}

// renderError writes the failure into the alerts region only.
func (s regionSet) renderError(err error) {
	s.alerts.Replace(errorParagraph(err))
}
