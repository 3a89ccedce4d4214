// Package edition maps marketplace pricing editions to the seat and storage
// entitlements provisioned for an account.
package edition

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Pricing unit codes used on flex order line items.
const (
	UnitUserPerLicense = "USER_PER_LICENSE"
	UnitGigabyte       = "GIGABYTE"
)

// CodeFlex is the edition whose entitlements come from order line items
// instead of the catalog.
const CodeFlex = "FLEX"

// CodeTrial is the edition applied to free trial orders regardless of the
// ordered edition code.
const CodeTrial = "TRIAL"

// Spec is one edition's entitlements.
type Spec struct {
	Code      string  `mapstructure:"code"`
	SeatLimit int64   `mapstructure:"seatLimit"`
	StorageTB float64 `mapstructure:"storageTb"`
}

// StorageBytes converts the entitlement to bytes (binary terabytes).
func (s Spec) StorageBytes() int64 {
	return int64(s.StorageTB * (1 << 40))
}

// LineItem is the unit/quantity pair from a flex order.
type LineItem struct {
	Unit     string
	Quantity int64
}

// Catalog holds the fixed editions keyed by code.
type Catalog map[string]Spec

// DefaultCatalog returns the built-in edition table.
func DefaultCatalog() Catalog {
	return Catalog{
		CodeTrial: {Code: CodeTrial, SeatLimit: 3, StorageTB: 0.1},
		"M":       {Code: "M", SeatLimit: 5, StorageTB: 1},
		"L":       {Code: "L", SeatLimit: 10, StorageTB: 2.5},
		"XL":      {Code: "XL", SeatLimit: 20, StorageTB: 5},
		"XXL":     {Code: "XXL", SeatLimit: 30, StorageTB: 10},
	}
}

// ErrUnknownEdition reports an edition code absent from the catalog.
var ErrUnknownEdition = errors.New("edition: unknown edition code")

// Resolve turns an ordered edition into a concrete Spec. Trials always get
// the trial entitlements. Flex editions are sized from their line items:
// USER_PER_LICENSE quantity becomes the seat limit and GIGABYTE quantity is
// converted to terabytes.
func (c Catalog) Resolve(code string, trial bool, items []LineItem) (Spec, error) {
	if trial {
		return c[CodeTrial], nil
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == CodeFlex {
		spec := Spec{Code: CodeFlex}
		for _, item := range items {
			switch strings.ToUpper(strings.TrimSpace(item.Unit)) {
			case UnitUserPerLicense:
				spec.SeatLimit += item.Quantity
			case UnitGigabyte:
				spec.StorageTB += float64(item.Quantity) / 1000
			}
		}
		if spec.SeatLimit <= 0 {
			return Spec{}, fmt.Errorf("edition: flex order has no %s item", UnitUserPerLicense)
		}
		return spec, nil
	}

	spec, ok := c[code]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownEdition, code)
	}
	return spec, nil
}

// Holder serves the current catalog and hot-reloads it when the config file
// changes.
type Holder struct {
	current atomic.Value // holds Catalog
}

// NewHolder loads editions.yml, falling back to the built-in catalog when no
// file is present.
func NewHolder() (*Holder, error) {
	v := viper.New()

	v.SetConfigName("editions")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/seaport/config") // Volume-mounted config
	v.AddConfigPath("/etc/seaport")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("SEAPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &Holder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultCatalog())
		return holder, nil
	}

	catalog, err := unmarshalCatalog(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalCatalog(v)
		if err != nil {
			zap.L().Warn("edition.catalog.reload_failed", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("edition.catalog.reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticHolder wraps a fixed catalog, with no file watching.
func NewStaticHolder(catalog Catalog) *Holder {
	holder := &Holder{}
	holder.current.Store(catalog)
	return holder
}

// Get returns the current catalog.
func (h *Holder) Get() Catalog {
	return h.current.Load().(Catalog)
}

func unmarshalCatalog(v *viper.Viper) (Catalog, error) {
	var specs []Spec
	if err := v.UnmarshalKey("editions", &specs); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, errors.New("editions cannot be empty")
	}

	catalog := Catalog{}
	for _, spec := range specs {
		code := strings.ToUpper(strings.TrimSpace(spec.Code))
		if code == "" {
			return nil, errors.New("edition code cannot be empty")
		}
		if spec.SeatLimit <= 0 {
			return nil, fmt.Errorf("edition %s: seatLimit must be positive", code)
		}
		spec.Code = code
		catalog[code] = spec
	}
	if _, ok := catalog[CodeTrial]; !ok {
		catalog[CodeTrial] = DefaultCatalog()[CodeTrial]
	}
	return catalog, nil
}
