package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"totemchain/native/merit"
	"totemchain/native/sale"
)

// Config is the on-disk node configuration. Amounts are decimal strings so
// that values above 2^63 survive the TOML round trip; addresses are 0x-prefixed
// 20-byte hex.
type Config struct {
	DataDir        string `toml:"DataDir"`
	LogLevel       string `toml:"LogLevel"`
	LogPath        string `toml:"LogPath"`
	MetricsAddress string `toml:"MetricsAddress"`

	StartTime      int64  `toml:"StartTime"`
	PeriodDuration int64  `toml:"PeriodDuration"`
	Admin          string `toml:"Admin"`
	Treasury       string `toml:"Treasury"`
	PaymentToken   string `toml:"PaymentToken"`
	RewardToken    string `toml:"RewardToken"`

	Merit MeritConfig `toml:"Merit"`
	Sale  SaleConfig  `toml:"Sale"`
}

type MeritConfig struct {
	MultiplierBps  uint64    `toml:"MultiplierBps"`
	BoostFee       string    `toml:"BoostFee"`
	BoostAward     string    `toml:"BoostAward"`
	PeriodsPerYear uint64    `toml:"PeriodsPerYear"`
	YearAllocation [4]string `toml:"YearAllocation"`
}

type SaleConfig struct {
	PriceUsd           string       `toml:"PriceUsd"`
	PerAddressCap      string       `toml:"PerAddressCap"`
	ReservedPoolSupply string       `toml:"ReservedPoolSupply"`
	InitialSupply      string       `toml:"InitialSupply"`
	CreatorAllotment   string       `toml:"CreatorAllotment"`
	VaultAllotment     string       `toml:"VaultAllotment"`
	OracleStaleness    int64        `toml:"OracleStaleness"`
	Shares             SharesConfig `toml:"Shares"`
}

type SharesConfig struct {
	TreasuryBps uint64 `toml:"TreasuryBps"`
	CreatorBps  uint64 `toml:"CreatorBps"`
	VaultBps    uint64 `toml:"VaultBps"`
	PoolBps     uint64 `toml:"PoolBps"`
}

// Load reads the configuration at path, creating a default file when none
// exists. Unknown keys are rejected so typos fail loudly instead of silently
// falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded.String())
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./totem-data"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the static shape of the configuration. Engine-level
// validation (bps sums, allotment arithmetic) happens again in
// MeritParams/SaleParams via the engines' own Validate methods.
func (c *Config) Validate() error {
	if c.PeriodDuration <= 0 {
		return fmt.Errorf("PeriodDuration must be positive, got %d", c.PeriodDuration)
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"Admin", c.Admin},
		{"Treasury", c.Treasury},
		{"PaymentToken", c.PaymentToken},
		{"RewardToken", c.RewardToken},
	} {
		if _, err := ParseAddress(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	if c.Merit.PeriodsPerYear == 0 {
		return fmt.Errorf("Merit.PeriodsPerYear must be positive")
	}
	return nil
}

// MeritParams converts the merit section into engine parameters.
func (c *Config) MeritParams() (merit.Params, error) {
	treasury, err := ParseAddress(c.Treasury)
	if err != nil {
		return merit.Params{}, fmt.Errorf("Treasury: %w", err)
	}
	feeToken, err := ParseAddress(c.PaymentToken)
	if err != nil {
		return merit.Params{}, fmt.Errorf("PaymentToken: %w", err)
	}
	rewardToken, err := ParseAddress(c.RewardToken)
	if err != nil {
		return merit.Params{}, fmt.Errorf("RewardToken: %w", err)
	}
	fee, err := ParseAmount(c.Merit.BoostFee)
	if err != nil {
		return merit.Params{}, fmt.Errorf("Merit.BoostFee: %w", err)
	}
	award, err := ParseAmount(c.Merit.BoostAward)
	if err != nil {
		return merit.Params{}, fmt.Errorf("Merit.BoostAward: %w", err)
	}

	params := merit.Params{
		MultiplierBps:  c.Merit.MultiplierBps,
		BoostFee:       fee,
		BoostAward:     award,
		FeeToken:       feeToken,
		RewardToken:    rewardToken,
		Treasury:       treasury,
		PeriodsPerYear: c.Merit.PeriodsPerYear,
	}
	for i, raw := range c.Merit.YearAllocation {
		alloc, err := ParseAmount(raw)
		if err != nil {
			return merit.Params{}, fmt.Errorf("Merit.YearAllocation[%d]: %w", i, err)
		}
		params.YearAllocation[i] = alloc
	}
	if err := params.Validate(); err != nil {
		return merit.Params{}, err
	}
	return params, nil
}

// SaleParams converts the sale section into engine parameters.
func (c *Config) SaleParams() (sale.Params, error) {
	treasury, err := ParseAddress(c.Treasury)
	if err != nil {
		return sale.Params{}, fmt.Errorf("Treasury: %w", err)
	}
	paymentToken, err := ParseAddress(c.PaymentToken)
	if err != nil {
		return sale.Params{}, fmt.Errorf("PaymentToken: %w", err)
	}

	params := sale.Params{
		PaymentToken:    paymentToken,
		Treasury:        treasury,
		OracleStaleness: c.Sale.OracleStaleness,
		Shares: sale.Shares{
			TreasuryBps: c.Sale.Shares.TreasuryBps,
			CreatorBps:  c.Sale.Shares.CreatorBps,
			VaultBps:    c.Sale.Shares.VaultBps,
			PoolBps:     c.Sale.Shares.PoolBps,
		},
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"Sale.PriceUsd", c.Sale.PriceUsd, &params.PriceUsd},
		{"Sale.PerAddressCap", c.Sale.PerAddressCap, &params.PerAddressCap},
		{"Sale.ReservedPoolSupply", c.Sale.ReservedPoolSupply, &params.ReservedPoolSupply},
		{"Sale.InitialSupply", c.Sale.InitialSupply, &params.InitialSupply},
		{"Sale.CreatorAllotment", c.Sale.CreatorAllotment, &params.CreatorAllotment},
		{"Sale.VaultAllotment", c.Sale.VaultAllotment, &params.VaultAllotment},
	} {
		amount, err := ParseAmount(field.raw)
		if err != nil {
			return sale.Params{}, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = amount
	}
	if err := params.Validate(); err != nil {
		return sale.Params{}, err
	}
	return params, nil
}

// AdminAddress returns the configured admin account.
func (c *Config) AdminAddress() ([20]byte, error) {
	return ParseAddress(c.Admin)
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", raw, len(addr), len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// ParseAmount decodes a non-negative decimal amount.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return amount, nil
}

// createDefault writes a runnable local configuration and returns it.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./totem-data",
		LogLevel:       "info",
		MetricsAddress: ":9464",
		StartTime:      0,
		PeriodDuration: 7 * 24 * 60 * 60,
		Admin:          "0x" + strings.Repeat("11", 20),
		Treasury:       "0x" + strings.Repeat("22", 20),
		PaymentToken:   "0x" + strings.Repeat("33", 20),
		RewardToken:    "0x" + strings.Repeat("44", 20),
		Merit: MeritConfig{
			MultiplierBps:  merit.DefaultMultiplierBps,
			BoostFee:       "1000000",
			BoostAward:     "100",
			PeriodsPerYear: 52,
			YearAllocation: [4]string{
				"40000000000000000000000000",
				"30000000000000000000000000",
				"20000000000000000000000000",
				"10000000000000000000000000",
			},
		},
		Sale: SaleConfig{
			PriceUsd:           "100000000",
			PerAddressCap:      "100000000000000000000000",
			ReservedPoolSupply: "200000000000000000000000000",
			InitialSupply:      "1000000000000000000000000000",
			CreatorAllotment:   "50000000000000000000000000",
			VaultAllotment:     "50000000000000000000000000",
			OracleStaleness:    3600,
			Shares: SharesConfig{
				TreasuryBps: 2500,
				CreatorBps:  2500,
				VaultBps:    2500,
				PoolBps:     2500,
			},
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
