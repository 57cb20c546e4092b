package client

import (
	"context"
	"fmt"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/wire"
)

func (t *davex) Query(ctx context.Context, statement string, language jcr.QueryLanguage, limit, offset int64) ([]jcr.QueryRow, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodSearch,
		uri:    t.rootURI,
		body:   wire.SearchRequest(language, statement, limit, offset),
	}, &ms)
	if err != nil {
		return nil, err
	}

	rows := make([]jcr.QueryRow, 0, len(ms.Responses))
	for _, resp := range ms.Responses {
		row := jcr.QueryRow{}
		for _, propstat := range resp.Propstats {
			if propstat.Prop.SearchResult == nil {
				continue
			}
			for _, col := range propstat.Prop.SearchResult.Columns {
				value, err := wire.DecodeValue(col.Value.Type, col.Value.Text)
				if err != nil {
					return nil, &wire.Error{Kind: wire.KindRepository,
						Message: fmt.Sprintf("query result column %s: %s", col.Name, err)}
				}
				row[col.Name] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (t *davex) SupportedQueryLanguages() []jcr.QueryLanguage {
	return []jcr.QueryLanguage{jcr.QueryJCRSQL2, jcr.QueryJQOM, jcr.QuerySQL, jcr.QueryXPath}
}
