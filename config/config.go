package config

import (
	"ecogood/constants"
	"ecogood/model"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func load() {
	loadOnce.Do(func() {
		// .env là tùy chọn, biến môi trường hệ thống vẫn được ưu tiên
		_ = godotenv.Load()
	})
}

// Config trả về giá trị biến môi trường theo key
func Config(key string) string {
	load()
	return os.Getenv(key)
}

// ConfigDefault trả về giá trị mặc định khi key không được đặt
func ConfigDefault(key, fallback string) string {
	if v := strings.TrimSpace(Config(key)); v != "" {
		return v
	}
	return fallback
}

func Duration(key string, fallback time.Duration) time.Duration {
	v := Config(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func Int(key string, fallback int) int {
	v := Config(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func AppEnv() string {
	return ConfigDefault("APP_ENV", "production")
}

// LoadVNPay đọc cấu hình VNPay. Không có giá trị mặc định: thiếu key nào
// thì trả về ErrConfiguration kèm danh sách key bị thiếu.
func LoadVNPay() (model.VNPayConfig, error) {
	cfg := model.VNPayConfig{
		TmnCode:    strings.TrimSpace(Config("VNP_TMNCODE")),
		HashSecret: strings.TrimSpace(Config("VNP_HASHSECRET")),
		BaseURL:    strings.TrimSpace(Config("VNP_URL")),
		ReturnURL:  strings.TrimSpace(Config("VNP_RETURN_URL")),
	}
	if err := ValidateVNPay(cfg); err != nil {
		return model.VNPayConfig{}, err
	}
	return cfg, nil
}

func ValidateVNPay(cfg model.VNPayConfig) error {
	var missing []string
	if cfg.TmnCode == "" {
		missing = append(missing, "VNP_TMNCODE")
	}
	if cfg.HashSecret == "" {
		missing = append(missing, "VNP_HASHSECRET")
	}
	if cfg.BaseURL == "" {
		missing = append(missing, "VNP_URL")
	}
	if cfg.ReturnURL == "" {
		missing = append(missing, "VNP_RETURN_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", constants.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// LoadBankAccount trả về tài khoản nhận chuyển khoản, ok=false nếu chưa cấu hình
func LoadBankAccount() (model.BankAccount, bool) {
	acc := model.BankAccount{
		BankID:      strings.TrimSpace(Config("BANK_ID")),
		AccountNo:   strings.TrimSpace(Config("BANK_ACCOUNT_NO")),
		AccountName: strings.TrimSpace(Config("BANK_ACCOUNT_NAME")),
		Template:    ConfigDefault("BANK_QR_TEMPLATE", "compact2"),
	}
	if acc.BankID == "" || acc.AccountNo == "" {
		return model.BankAccount{}, false
	}
	return acc, true
}
