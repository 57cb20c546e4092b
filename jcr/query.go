package jcr

// QueryLanguage selects the dialect of a query statement
type QueryLanguage string

// Supported query languages. JQOM queries are serialized to SQL2 before
// submission, so both map to the same wire dialect.
const (
	QueryJCRSQL2 QueryLanguage = "JCR-SQL2"
	QueryJQOM    QueryLanguage = "JCR-JQOM"
	QuerySQL     QueryLanguage = "sql"
	QueryXPath   QueryLanguage = "xpath"
)

// QueryRow is one result row: named columns with typed values
type QueryRow map[string]Value
