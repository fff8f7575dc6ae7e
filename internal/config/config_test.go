package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadsync")
	t.Setenv("LEADSYNC_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/leadsync", cfg.DatabaseURL)
	assert.Equal(t, []int64{0}, cfg.SheetIDs)
	assert.Equal(t, 4, cfg.Bitrix.PipelineID)
	assert.Equal(t, 4, cfg.Bitrix.CategoryID)
	assert.Equal(t, "UF_CRM_1734528621", cfg.Bitrix.ContactCNPJField)
	assert.Equal(t, map[string]int{"C6": 116, "BS2": 118, "SANTANDER": 120}, cfg.Bitrix.BankMap)
	assert.Equal(t, 3, cfg.Bitrix.MaxLeadAttempts)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.True(t, cfg.EnableBitrix)
	assert.Equal(t, 8080, cfg.MonitorPort)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEADSYNC_CONFIG", "")
	t.Setenv("SHEET_IDS", "0, 1122334455")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("SYNC_INTERVAL_SECONDS", "30")
	t.Setenv("ENABLE_BITRIX_SYNC", "false")
	t.Setenv("BITRIX_BANK_MAP", "c6:1")
	t.Setenv("MAIL_HOST", "smtp.example.com")
	t.Setenv("ALERT_EMAIL", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1122334455}, cfg.SheetIDs)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.False(t, cfg.EnableBitrix)
	assert.Equal(t, map[string]int{"C6": 1}, cfg.Bitrix.BankMap)
	assert.True(t, cfg.Mail.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LEADSYNC_CONFIG", "")

	t.Run("sheet ids", func(t *testing.T) {
		t.Setenv("SHEET_IDS", "0,abc")
		_, err := Load()
		assert.ErrorContains(t, err, "SHEET_IDS")
	})
	t.Run("bank map", func(t *testing.T) {
		t.Setenv("BITRIX_BANK_MAP", "C6")
		_, err := Load()
		assert.ErrorContains(t, err, "BITRIX_BANK_MAP")
	})
	t.Run("retries", func(t *testing.T) {
		t.Setenv("MAX_RETRIES", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "MAX_RETRIES")
	})
}

func TestParseSheetIDs(t *testing.T) {
	ids, err := ParseSheetIDs(" 7, 0 ,7,, ")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 0}, ids)

	ids, err = ParseSheetIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestValidateSync(t *testing.T) {
	cfg := &Config{
		DatabaseURL:   "postgres://x",
		SpreadsheetID: "sheet",
		SheetIDs:      []int64{0},
		EnableBitrix:  true,
	}
	assert.ErrorContains(t, cfg.ValidateSync(), "BITRIX_URL")

	cfg.EnableBitrix = false
	assert.NoError(t, cfg.ValidateSync())

	cfg.DatabaseURL = ""
	assert.ErrorContains(t, cfg.ValidateSync(), "DATABASE_URL")
}

func TestReconcileConfigCarriesBitrixFields(t *testing.T) {
	cfg := &Config{Bitrix: BitrixConfig{
		PipelineID:    4,
		CategoryID:    4,
		DealBankField: "UF_BANK",
		BankMap:       map[string]int{"C6": 116},
	}}

	rc := cfg.ReconcileConfig()
	assert.Equal(t, 4, rc.PipelineID)
	assert.Equal(t, "UF_BANK", rc.DealBankField)
	assert.Equal(t, 116, rc.BankMap["C6"])
}
