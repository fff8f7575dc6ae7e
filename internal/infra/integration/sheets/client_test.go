package sheets_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/leadsync/internal/infra/integration/sheets"
	"google.golang.org/api/option"
)

const metadata = `{"sheets":[
	{"properties":{"sheetId":0,"title":"C6 - Planilha Geral"}},
	{"properties":{"sheetId":987,"title":"BS2 - Leads"}}
]}`

func fakeSheets(t *testing.T, values string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			assert.Contains(t, r.URL.Path, "'BS2 - Leads'!A:Z")
			assert.Equal(t, "FORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
			_, _ = w.Write([]byte(values))
		case strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1"):
			_, _ = w.Write([]byte(metadata))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *sheets.Client {
	t.Helper()
	client, err := sheets.NewClient(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestFetchRowsMapsHeaderAndPadsShortRows(t *testing.T) {
	srv := fakeSheets(t, `{"range":"'BS2 - Leads'!A1:H3","values":[
		["Data","CNPJ","TELEFONE","NOME","EMPRESA","CONSULTOR","Forma Prospecção","Etapa"],
		["10/06/2025","12345678000199","41991574642","Maria","Padaria","Ana Lima","Ligação","Novo"],
		["","","4130303030"]
	]}`)

	tab, err := newClient(t, srv).FetchRows(context.Background(), "sheet-1", 987)

	require.NoError(t, err)
	assert.Equal(t, int64(987), tab.TabID)
	assert.Equal(t, "BS2 - Leads", tab.Name)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "12345678000199", tab.Rows[0]["CNPJ"])
	assert.Equal(t, "Ligação", tab.Rows[0]["Forma Prospecção"])
	assert.Equal(t, "4130303030", tab.Rows[1]["TELEFONE"])
	assert.Equal(t, "", tab.Rows[1]["EMPRESA"])
	assert.Len(t, tab.Rows[1], 8)
}

func TestFetchRowsUnknownTab(t *testing.T) {
	srv := fakeSheets(t, `{}`)

	_, err := newClient(t, srv).FetchRows(context.Background(), "sheet-1", 555)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "555")
}

func TestFetchRowsEmptyTab(t *testing.T) {
	srv := fakeSheets(t, `{"range":"'BS2 - Leads'!A1:Z1000"}`)

	tab, err := newClient(t, srv).FetchRows(context.Background(), "sheet-1", 987)

	require.NoError(t, err)
	assert.Empty(t, tab.Rows)
}
