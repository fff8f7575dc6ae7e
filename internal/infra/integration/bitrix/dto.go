package bitrix

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// envelope é a resposta padrão do REST do Bitrix24.
type envelope struct {
	Result           json.RawMessage `json:"result"`
	Next             *int            `json:"next,omitempty"`
	Total            int             `json:"total,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

type listRequest struct {
	Filter map[string]any `json:"filter"`
	Select []string       `json:"select"`
	Start  int            `json:"start,omitempty"`
}

type addRequest struct {
	Fields map[string]any    `json:"fields"`
	Params map[string]string `json:"params,omitempty"`
}

type updateRequest struct {
	ID     int               `json:"id"`
	Fields map[string]any    `json:"fields"`
	Params map[string]string `json:"params,omitempty"`
}

type userRequest struct {
	Filter map[string]string `json:"FILTER"`
}

type statusRequest struct {
	Filter map[string]string `json:"filter"`
}

type userResponse struct {
	ID       flexInt `json:"ID"`
	Name     string  `json:"NAME"`
	LastName string  `json:"LAST_NAME"`
	Active   bool    `json:"ACTIVE"`
}

type statusResponse struct {
	StatusID string  `json:"STATUS_ID"`
	Name     string  `json:"NAME"`
	Sort     flexInt `json:"SORT"`
}

// APIError é um erro devolvido pelo Bitrix (HTTP != 2xx ou campo "error").
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitrix %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// flexInt aceita número ou string numérica: o Bitrix devolve IDs como "123".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("id inválido %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
