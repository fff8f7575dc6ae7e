package sheets

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xavierca1/leadsync/internal/entity"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Intervalo lido de cada aba; as colunas conhecidas ficam bem antes de Z.
const valueRange = "A:Z"

// Client lê abas inteiras do Google Sheets.
type Client struct {
	svc *gsheets.Service
}

// NewClient aceita o JSON da service account ou o caminho do arquivo.
// opts extras servem para apontar para outro endpoint nos testes.
func NewClient(ctx context.Context, credentials string, opts ...option.ClientOption) (*Client, error) {
	base := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}

	creds := strings.TrimSpace(credentials)
	switch {
	case strings.HasPrefix(creds, "{"):
		base = append(base, option.WithCredentialsJSON([]byte(creds)))
	case creds != "":
		base = append(base, option.WithCredentialsFile(creds))
	}

	svc, err := gsheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("criar cliente do sheets: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchRows localiza a aba pelo sheetId e devolve todas as linhas abaixo do cabeçalho.
func (c *Client) FetchRows(ctx context.Context, spreadsheetID string, tabID int64) (*entity.SheetTab, error) {
	name, err := c.tabName(ctx, spreadsheetID, tabID)
	if err != nil {
		return nil, err
	}

	rangeRef := fmt.Sprintf("'%s'!%s", strings.ReplaceAll(name, "'", "''"), valueRange)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeRef).
		ValueRenderOption("FORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("ler valores da aba '%s': %w", name, err)
	}

	tab := &entity.SheetTab{TabID: tabID, Name: name}
	if len(resp.Values) == 0 {
		log.Printf("⚠️ Aba '%s' está vazia", name)
		return tab, nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, h := range resp.Values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(h))
	}

	for _, values := range resp.Values[1:] {
		row := make(entity.SheetRow, len(header))
		// A API corta as células vazias do fim da linha
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(values) {
				row[h] = fmt.Sprint(values[i])
			} else {
				row[h] = ""
			}
		}
		tab.Rows = append(tab.Rows, row)
	}

	return tab, nil
}

func (c *Client) tabName(ctx context.Context, spreadsheetID string, tabID int64) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("ler metadados da planilha: %w", err)
	}

	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.SheetId == tabID {
			return s.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("aba %d não encontrada na planilha %s", tabID, spreadsheetID)
}
