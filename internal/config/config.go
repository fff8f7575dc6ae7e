package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xavierca1/leadsync/internal/usecase"
)

type Config struct {
	DatabaseURL string
	DBTimeout   time.Duration

	SpreadsheetID     string
	SheetIDs          []int64
	GoogleCredentials string

	Bitrix BitrixConfig

	HTTPTimeout  time.Duration
	SyncInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	EnableBitrix bool

	RabbitMQURL string
	Mail        MailConfig

	MonitorPort int
}

type BitrixConfig struct {
	URL                  string
	PipelineID           int
	CategoryID           int
	ContactCNPJField     string
	DealCNPJField        string
	DealProspectingField string
	DealBankField        string
	BankMap              map[string]int
	RateLimit            float64
	MaxLeadAttempts      int
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// Enabled: os alertas só saem com host e destinatário configurados.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.To != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sheet_ids", "0")
	v.SetDefault("db_timeout_seconds", 30)
	v.SetDefault("bitrix_pipeline_id", 4)
	v.SetDefault("bitrix_category_id", 4)
	v.SetDefault("bitrix_contact_cnpj_field", "UF_CRM_1734528621")
	v.SetDefault("bitrix_deal_cnpj_field", "UF_CRM_1741653424")
	v.SetDefault("bitrix_deal_prospecting_field", "UF_CRM_1748264680989")
	v.SetDefault("bitrix_deal_bank_field", "UF_CRM_1743684072273")
	v.SetDefault("bitrix_bank_map", "C6:116,BS2:118,SANTANDER:120")
	v.SetDefault("bitrix_rate_limit", 2)
	v.SetDefault("bitrix_max_lead_attempts", 3)
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("sync_interval_seconds", 120)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay_seconds", 60)
	v.SetDefault("enable_bitrix_sync", true)
	v.SetDefault("mail_port", 587)
	v.SetDefault("monitor_port", 8080)
}

// Load lê .env (se existir), um arquivo opcional apontado por LEADSYNC_CONFIG
// e as variáveis de ambiente, nessa ordem de precedência crescente.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("LEADSYNC_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("erro ao ler config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	sheetIDs, err := ParseSheetIDs(v.GetString("sheet_ids"))
	if err != nil {
		return nil, err
	}
	bankMap, err := ParseBankMap(v.GetString("bitrix_bank_map"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		DBTimeout:   seconds(v, "db_timeout_seconds"),

		SpreadsheetID:     v.GetString("spreadsheet_id"),
		SheetIDs:          sheetIDs,
		GoogleCredentials: v.GetString("google_credentials_json"),

		Bitrix: BitrixConfig{
			URL:                  v.GetString("bitrix_url"),
			PipelineID:           v.GetInt("bitrix_pipeline_id"),
			CategoryID:           v.GetInt("bitrix_category_id"),
			ContactCNPJField:     v.GetString("bitrix_contact_cnpj_field"),
			DealCNPJField:        v.GetString("bitrix_deal_cnpj_field"),
			DealProspectingField: v.GetString("bitrix_deal_prospecting_field"),
			DealBankField:        v.GetString("bitrix_deal_bank_field"),
			BankMap:              bankMap,
			RateLimit:            v.GetFloat64("bitrix_rate_limit"),
			MaxLeadAttempts:      v.GetInt("bitrix_max_lead_attempts"),
		},

		HTTPTimeout:  seconds(v, "http_timeout_seconds"),
		SyncInterval: seconds(v, "sync_interval_seconds"),
		MaxRetries:   v.GetInt("max_retries"),
		RetryDelay:   seconds(v, "retry_delay_seconds"),
		EnableBitrix: v.GetBool("enable_bitrix_sync"),

		RabbitMQURL: v.GetString("rabbitmq_url"),
		Mail: MailConfig{
			Host:     v.GetString("mail_host"),
			Port:     v.GetInt("mail_port"),
			User:     v.GetString("mail_user"),
			Password: v.GetString("mail_pass"),
			To:       v.GetString("alert_email"),
		},

		MonitorPort: v.GetInt("monitor_port"),
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES inválido: %d", cfg.MaxRetries)
	}
	if cfg.SyncInterval <= 0 {
		return nil, errors.New("SYNC_INTERVAL_SECONDS deve ser positivo")
	}
	return cfg, nil
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// ValidateDatabase é o mínimo para migrate e serve.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL não configurada")
	}
	return nil
}

// ValidateSync é exigido por once e run.
func (c *Config) ValidateSync() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.SpreadsheetID == "" {
		return errors.New("SPREADSHEET_ID não configurado")
	}
	if len(c.SheetIDs) == 0 {
		return errors.New("SHEET_IDS vazio")
	}
	if c.EnableBitrix && c.Bitrix.URL == "" {
		return errors.New("BITRIX_URL não configurada (ou ENABLE_BITRIX_SYNC=false)")
	}
	return nil
}

func (c *Config) SyncInput() usecase.SyncInput {
	return usecase.SyncInput{SpreadsheetID: c.SpreadsheetID, TabIDs: c.SheetIDs}
}

func (c *Config) ReconcileConfig() usecase.ReconcileConfig {
	return usecase.ReconcileConfig{
		PipelineID:           c.Bitrix.PipelineID,
		CategoryID:           c.Bitrix.CategoryID,
		ContactCNPJField:     c.Bitrix.ContactCNPJField,
		DealCNPJField:        c.Bitrix.DealCNPJField,
		DealProspectingField: c.Bitrix.DealProspectingField,
		DealBankField:        c.Bitrix.DealBankField,
		BankMap:              c.Bitrix.BankMap,
	}
}

// ParseSheetIDs lê "0,123456" mantendo a ordem e ignorando repetidos.
func ParseSheetIDs(raw string) ([]int64, error) {
	var ids []int64
	seen := map[int64]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("SHEET_IDS: id de aba inválido %q", part)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseBankMap lê "C6:116,BS2:118"; as chaves ficam em maiúsculas.
func ParseBankMap(raw string) (map[string]int, error) {
	out := map[string]int{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, ":")
		key = strings.ToUpper(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("BITRIX_BANK_MAP: par inválido %q", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("BITRIX_BANK_MAP: id inválido em %q", pair)
		}
		out[key] = id
	}
	return out, nil
}
