package wire

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
)

const xmlProlog = `<?xml version="1.0" encoding="UTF-8"?>`

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s)) //nolint:errcheck // strings.Builder does not fail
	return b.String()
}

// PropfindBody builds a PROPFIND request asking for the given dcr: or DAV:
// properties. Entries with a prefix keep it; bare names go into the dcr:
// namespace.
func PropfindBody(props ...string) []byte {
	var b strings.Builder
	b.WriteString(xmlProlog)
	fmt.Fprintf(&b, `<D:propfind xmlns:D="%s"><D:prop>`, NSDAV)
	for _, p := range props {
		if strings.HasPrefix(p, "D:") {
			fmt.Fprintf(&b, `<%s/>`, p)
		} else {
			fmt.Fprintf(&b, `<dcr:%s xmlns:dcr="%s"/>`, p, NSDCR)
		}
	}
	b.WriteString(`</D:prop></D:propfind>`)
	return []byte(b.String())
}

// ReportRepositoryDescriptors builds the repository descriptors report body
func ReportRepositoryDescriptors() []byte {
	return []byte(xmlProlog + `<dcr:repositorydescriptors xmlns:dcr="` + NSDCR + `"/>`)
}

// ReportLocateByUUID builds the locate report resolving a node identifier
func ReportLocateByUUID(id string) []byte {
	return []byte(fmt.Sprintf(
		`%s<dcr:locate-by-uuid xmlns:dcr="%s"><D:href xmlns:D="%s">%s</D:href></dcr:locate-by-uuid>`,
		xmlProlog, NSDCR, NSDAV, escape(id)))
}

// ReportPrivileges builds the privileges report for the given URI
func ReportPrivileges(uri string) []byte {
	return []byte(fmt.Sprintf(
		`%s<dcr:privileges xmlns:dcr="%s"><D:href xmlns:D="%s">%s</D:href></dcr:privileges>`,
		xmlProlog, NSDCR, NSDAV, escape(uri)))
}

// ReportNodeTypes builds the node types report. With no names, all node
// types are requested.
func ReportNodeTypes(names ...string) []byte {
	var b strings.Builder
	b.WriteString(xmlProlog)
	fmt.Fprintf(&b, `<jcr:nodetypes xmlns:jcr="%s">`, NSDCR)
	if len(names) == 0 {
		b.WriteString(`<jcr:all-nodetypes/>`)
	} else {
		for _, name := range names {
			fmt.Fprintf(&b, `<jcr:nodetype><jcr:nodetypename>%s</jcr:nodetypename></jcr:nodetype>`, escape(name))
		}
	}
	b.WriteString(`</jcr:nodetypes>`)
	return []byte(b.String())
}

// SearchRequest builds the search request body for a query. limit and offset
// are ignored when negative.
func SearchRequest(language jcr.QueryLanguage, statement string, limit, offset int64) []byte {
	dialect := string(language)
	if language == jcr.QueryJQOM {
		// JQOM arrives already serialized to SQL2 by the query-object-model
		// builder; both share the wire dialect.
		dialect = string(jcr.QueryJCRSQL2)
	}
	var b strings.Builder
	b.WriteString(xmlProlog)
	fmt.Fprintf(&b, `<D:searchrequest xmlns:D="%s"><%s><![CDATA[%s]]></%s>`, NSDAV, dialect, statement, dialect)
	if limit >= 0 || offset >= 0 {
		b.WriteString(`<D:limit>`)
		if limit >= 0 {
			fmt.Fprintf(&b, `<D:nresults>%d</D:nresults>`, limit)
		}
		if offset >= 0 {
			fmt.Fprintf(&b, `<D:firstresult>%d</D:firstresult>`, offset)
		}
		b.WriteString(`</D:limit>`)
	}
	b.WriteString(`</D:searchrequest>`)
	return []byte(b.String())
}

// LockInfo builds a lock acquisition body
func LockInfo(sessionScoped bool, owner string) []byte {
	scope := `<D:exclusive/>`
	if sessionScoped {
		scope = fmt.Sprintf(`<dcr:exclusive-session-scoped xmlns:dcr="%s"/>`, NSDCR)
	}
	return []byte(fmt.Sprintf(
		`%s<D:lockinfo xmlns:D="%s"><D:lockscope>%s</D:lockscope><D:locktype><D:write/></D:locktype><D:owner>%s</D:owner></D:lockinfo>`,
		xmlProlog, NSDAV, scope, escape(owner)))
}

// UpdateToVersion builds the UPDATE body restoring a node to a version
func UpdateToVersion(versionURI string, removeExisting bool) []byte {
	var b strings.Builder
	b.WriteString(xmlProlog)
	fmt.Fprintf(&b, `<D:update xmlns:D="%s"><D:version><D:href>%s</D:href></D:version>`, NSDAV, escape(versionURI))
	if removeExisting {
		fmt.Fprintf(&b, `<dcr:removeexisting xmlns:dcr="%s"/>`, NSDCR)
	}
	b.WriteString(`</D:update>`)
	return []byte(b.String())
}

// UpdateFromWorkspace builds the UPDATE body refreshing a node from the
// corresponding node of another workspace
func UpdateFromWorkspace(workspaceURI string) []byte {
	return []byte(fmt.Sprintf(
		`%s<D:update xmlns:D="%s"><D:workspace><D:href>%s</D:href></D:workspace></D:update>`,
		xmlProlog, NSDAV, escape(workspaceURI)))
}

// LabelBody builds a LABEL request adding or removing a version label
func LabelBody(action, label string) []byte {
	return []byte(fmt.Sprintf(
		`%s<dcr:label xmlns:dcr="%s"><dcr:%s><dcr:labelname>%s</dcr:labelname></dcr:%s></dcr:label>`,
		xmlProlog, NSDCR, action, escape(label), action))
}

// ProppatchNamespaces builds the PROPPATCH body replacing the entire
// namespace map. The protocol has no primitive for registering a single
// namespace.
func ProppatchNamespaces(namespaces map[string]string) []byte {
	var b strings.Builder
	b.WriteString(xmlProlog)
	fmt.Fprintf(&b, `<D:propertyupdate xmlns:D="%s"><D:set><D:prop><dcr:namespaces xmlns:dcr="%s">`, NSDAV, NSDCR)
	for prefix, uri := range namespaces {
		fmt.Fprintf(&b, `<dcr:namespace><dcr:prefix>%s</dcr:prefix><dcr:uri>%s</dcr:uri></dcr:namespace>`,
			escape(prefix), escape(uri))
	}
	b.WriteString(`</dcr:namespaces></D:prop></D:set></D:propertyupdate>`)
	return []byte(b.String())
}

// ProppatchNodeTypesCnd builds the PROPPATCH body registering node types
// from a CND schema definition
func ProppatchNodeTypesCnd(cnd string, allowUpdate bool) []byte {
	return []byte(fmt.Sprintf(
		`%s<D:propertyupdate xmlns:D="%s"><D:set><D:prop><dcr:nodetypes-cnd xmlns:dcr="%s"><dcr:cnd>%s</dcr:cnd><dcr:allowupdate>%t</dcr:allowupdate></dcr:nodetypes-cnd></D:prop></D:set></D:propertyupdate>`,
		xmlProlog, NSDAV, NSDCR, escape(cnd), allowUpdate))
}

// Multistatus is a parsed DAV: multistatus response document
type Multistatus struct {
	XMLName   xml.Name     `xml:"DAV: multistatus"`
	Responses []MSResponse `xml:"response"`
}

// MSResponse is one response element of a multistatus document
type MSResponse struct {
	Href      string     `xml:"href"`
	Propstats []Propstat `xml:"propstat"`
}

// Propstat groups properties sharing one status
type Propstat struct {
	Status string `xml:"status"`
	Prop   Prop   `xml:"prop"`
}

// Prop holds every property this transport ever asks for; absent ones stay
// zero
type Prop struct {
	WorkspaceName  string        `xml:"http://www.day.com/jcr/webdav/1.0 workspaceName"`
	Workspace      *Href         `xml:"DAV: workspace"`
	References     *HrefList     `xml:"http://www.day.com/jcr/webdav/1.0 references"`
	WeakReferences *HrefList     `xml:"http://www.day.com/jcr/webdav/1.0 weakreferences"`
	Namespaces     *NamespaceSet `xml:"http://www.day.com/jcr/webdav/1.0 namespaces"`
	SearchResult   *SearchResult `xml:"http://www.day.com/jcr/webdav/1.0 search-result-property"`
	Privileges     *PrivilegeSet `xml:"DAV: current-user-privilege-set"`
	Lockdiscovery  *Lockdiscovery `xml:"DAV: lockdiscovery"`
}

// Href is a single wrapped DAV: href
type Href struct {
	Href string `xml:"href"`
}

// HrefList is a list of DAV: hrefs
type HrefList struct {
	Hrefs []string `xml:"href"`
}

// NamespaceSet is the dcr:namespaces property value
type NamespaceSet struct {
	Namespaces []Namespace `xml:"namespace"`
}

// Namespace is one prefix/URI registration
type Namespace struct {
	Prefix string `xml:"prefix"`
	URI    string `xml:"uri"`
}

// SearchResult is the column set of one query result row
type SearchResult struct {
	Columns []Column `xml:"column"`
}

// Column is one named, type-tagged query result value
type Column struct {
	Name  string      `xml:"name"`
	Value ColumnValue `xml:"value"`
}

// ColumnValue carries a value's text and its type tag attribute
type ColumnValue struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// PrivilegeSet is the DAV: current-user-privilege-set property value
type PrivilegeSet struct {
	Privileges []PrivilegeHolder `xml:"privilege"`
}

// PrivilegeHolder wraps one privilege element; the privilege is named by the
// child element's local name
type PrivilegeHolder struct {
	Inner []AnyElement `xml:",any"`
}

// AnyElement captures an element by name with its text content
type AnyElement struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// DescriptorsReport is the parsed repository descriptors report
type DescriptorsReport struct {
	XMLName     xml.Name     `xml:"http://www.day.com/jcr/webdav/1.0 repositorydescriptors"`
	Descriptors []Descriptor `xml:"descriptor"`
}

// Descriptor is one key with its scalar or list value
type Descriptor struct {
	Key    string   `xml:"descriptorkey"`
	Values []string `xml:"descriptorvalue"`
}

// NodeTypesReport is the parsed node types report
type NodeTypesReport struct {
	XMLName   xml.Name          `xml:"http://www.day.com/jcr/webdav/1.0 nodeTypes"`
	NodeTypes []NodeTypeElement `xml:"nodeType"`
}

// NodeTypeElement is one node type definition; the raw XML fragment is kept
// for callers that consume raw schema definitions
type NodeTypeElement struct {
	Name string `xml:"nodetypename"`
	Raw  string `xml:",innerxml"`
}

// BinaryValues is the XML wrapper of a multi-valued binary property read
type BinaryValues struct {
	XMLName xml.Name `xml:"http://www.day.com/jcr/webdav/1.0 values"`
	Values  []string `xml:"value"`
}
