package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
	"golang.org/x/time/rate"
)

// maxPages limita a paginação de um .list (50 itens por página).
const maxPages = 20

// Client fala com o webhook REST do Bitrix24. O token já vem embutido na baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	// Campos customizados incluídos no select de cada tipo
	extraSelect map[entity.CRMKind][]string
}

func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		extraSelect: map[entity.CRMKind][]string{},
	}
}

// WithSelect acrescenta campos (ex.: UF_CRM_...) ao select das buscas.
func (c *Client) WithSelect(kind entity.CRMKind, fields ...string) *Client {
	c.extraSelect[kind] = append(c.extraSelect[kind], fields...)
	return c
}

func method(kind entity.CRMKind, action string) string {
	return fmt.Sprintf("crm.%s.%s", kind, action)
}

func (c *Client) FindEntities(ctx context.Context, kind entity.CRMKind, criteria entity.CRMCriteria) ([]entity.CRMRecord, error) {
	sel := []string{"ID"}
	switch kind {
	case entity.CRMContact:
		sel = append(sel, entity.FieldName, entity.FieldPhone, entity.FieldAssignedBy)
	case entity.CRMDeal:
		sel = append(sel, entity.FieldTitle, entity.FieldContact, entity.FieldCategory, entity.FieldStage, entity.FieldAssignedBy)
	}
	sel = append(sel, c.extraSelect[kind]...)

	req := listRequest{Filter: map[string]any(criteria), Select: sel}

	var records []entity.CRMRecord
	for page := 0; page < maxPages; page++ {
		var items []map[string]json.RawMessage
		env, err := c.call(ctx, method(kind, "list"), req, &items)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			rec, err := toRecord(kind, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		if env.Next == nil {
			return records, nil
		}
		req.Start = *env.Next
	}

	log.Printf("⚠️ Bitrix: %s com mais de %d páginas, resultado truncado", method(kind, "list"), maxPages)
	return records, nil
}

func (c *Client) CreateEntity(ctx context.Context, kind entity.CRMKind, fields entity.CRMFields) (int, error) {
	var id flexInt
	_, err := c.call(ctx, method(kind, "add"), addRequest{
		Fields: map[string]any(fields),
		Params: map[string]string{"REGISTER_SONET_EVENT": "N"},
	}, &id)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("bitrix: %s não devolveu ID", method(kind, "add"))
	}
	return int(id), nil
}

func (c *Client) UpdateEntity(ctx context.Context, kind entity.CRMKind, id int, fields entity.CRMFields) error {
	var ok bool
	_, err := c.call(ctx, method(kind, "update"), updateRequest{
		ID:     id,
		Fields: map[string]any(fields),
		Params: map[string]string{"REGISTER_SONET_EVENT": "N"},
	}, &ok)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bitrix: %s %d recusado", method(kind, "update"), id)
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context, filter map[string]string) ([]entity.CRMUser, error) {
	var resp []userResponse
	if _, err := c.call(ctx, "user.get", userRequest{Filter: filter}, &resp); err != nil {
		return nil, err
	}

	users := make([]entity.CRMUser, 0, len(resp))
	for _, u := range resp {
		users = append(users, entity.CRMUser{
			ID:       int(u.ID),
			Name:     u.Name,
			LastName: u.LastName,
			Active:   u.Active,
		})
	}
	return users, nil
}

// ListPipelineStages lista as etapas do funil. O funil 0 usa a entidade DEAL_STAGE.
func (c *Client) ListPipelineStages(ctx context.Context, pipelineID int) ([]entity.PipelineStage, error) {
	entityID := "DEAL_STAGE"
	if pipelineID > 0 {
		entityID = fmt.Sprintf("DEAL_STAGE_%d", pipelineID)
	}

	var resp []statusResponse
	if _, err := c.call(ctx, "crm.status.list", statusRequest{Filter: map[string]string{"ENTITY_ID": entityID}}, &resp); err != nil {
		return nil, err
	}

	stages := make([]entity.PipelineStage, 0, len(resp))
	for _, s := range resp {
		stages = append(stages, entity.PipelineStage{StatusID: s.StatusID, Name: s.Name, Sort: int(s.Sort)})
	}
	return stages, nil
}

// call faz POST {baseURL}/{method}.json respeitando o rate limit.
func (c *Client) call(ctx context.Context, apiMethod string, payload any, out any) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erro ao marshal %s: %w", apiMethod, err)
	}

	url := fmt.Sprintf("%s/%s.json", c.baseURL, apiMethod)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro request bitrix %s: %w", apiMethod, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("resposta inválida de %s: %w", apiMethod, err)
		}
	}

	if resp.StatusCode >= 300 || env.Error != "" {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: env.Error, Description: env.ErrorDescription}
		if apiErr.Description == "" && env.Error == "" {
			apiErr.Description = string(raw)
		}
		log.Printf("❌ Bitrix %s: %v", apiMethod, apiErr)
		return nil, apiErr
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return nil, fmt.Errorf("erro ao decodificar resultado de %s: %w", apiMethod, err)
		}
	}
	return &env, nil
}

func toRecord(kind entity.CRMKind, item map[string]json.RawMessage) (entity.CRMRecord, error) {
	var rec entity.CRMRecord

	var id flexInt
	if err := json.Unmarshal(item["ID"], &id); err != nil {
		return rec, fmt.Errorf("ID inválido: %w", err)
	}
	rec.ID = int(id)

	nameKey := entity.FieldName
	if kind == entity.CRMDeal {
		nameKey = entity.FieldTitle
	}
	if v, ok := item[nameKey]; ok {
		if err := json.Unmarshal(v, &rec.Name); err != nil {
			log.Printf("⚠️ Bitrix: %s inválido no %s %d: %v", nameKey, kind, rec.ID, err)
		}
	}
	if v, ok := item[entity.FieldPhone]; ok {
		if err := json.Unmarshal(v, &rec.Phones); err != nil {
			log.Printf("⚠️ Bitrix: PHONE inválido no %s %d: %v", kind, rec.ID, err)
			rec.Phones = nil
			rec.PhonesUnknown = true
		}
	}

	rec.Fields = make(map[string]any, len(item))
	for k, v := range item {
		var val any
		if err := json.Unmarshal(v, &val); err == nil {
			rec.Fields[k] = val
		}
	}
	return rec, nil
}
