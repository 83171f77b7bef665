package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tradetariff/uktt/internal/tariff"
)

// Variant flags select a sub-resource of an entity.
const (
	FlagGoods   = "goods"
	FlagNote    = "note"
	FlagChanges = "changes"
	FlagParam   = "param"
)

// Resources returns the registry of Trade Tariff resource commands.
func Resources() *Registry {
	r := NewRegistry()

	r.Register(Endpoint{
		Use:     "section <id>",
		Short:   "Retrieve a section",
		Example: "  uktt section 1\n  uktt section 1 --note",
		Args:    cobra.ExactArgs(1),
		Flags:   variantFlags(FlagGoods, FlagNote),
		Path: func(c Call) (string, error) {
			id := c.Args[0]
			switch {
			case c.Bool(FlagGoods):
				return goodsPath(c, "section", id)
			case c.Bool(FlagNote):
				return tariff.SectionNotePath(id), nil
			}
			return tariff.SectionPath(id), nil
		},
	})
	r.Register(Endpoint{
		Use:   "sections",
		Short: "Retrieve all sections",
		Args:  cobra.NoArgs,
		Path:  func(Call) (string, error) { return tariff.SectionsPath(), nil },
	})
	r.Register(Endpoint{
		Use:     "chapter <id>",
		Short:   "Retrieve a chapter",
		Example: "  uktt chapter 01\n  uktt chapter 01 --changes",
		Args:    cobra.ExactArgs(1),
		Flags:   variantFlags(FlagGoods, FlagNote, FlagChanges),
		Path: func(c Call) (string, error) {
			id := c.Args[0]
			switch {
			case c.Bool(FlagGoods):
				return goodsPath(c, "chapter", id)
			case c.Bool(FlagNote):
				return tariff.ChapterNotePath(id), nil
			case c.Bool(FlagChanges):
				return tariff.ChapterChangesPath(id), nil
			}
			return tariff.ChapterPath(id), nil
		},
	})
	r.Register(Endpoint{
		Use:   "chapters",
		Short: "Retrieve all chapters",
		Args:  cobra.NoArgs,
		Path:  func(Call) (string, error) { return tariff.ChaptersPath(), nil },
	})
	r.Register(Endpoint{
		Use:   "heading <id>",
		Short: "Retrieve a heading",
		Args:  cobra.ExactArgs(1),
		Flags: variantFlags(FlagGoods, FlagChanges),
		Path: func(c Call) (string, error) {
			id := c.Args[0]
			switch {
			case c.Bool(FlagGoods):
				return goodsPath(c, "heading", id)
			case c.Bool(FlagChanges):
				return tariff.HeadingChangesPath(id), nil
			}
			return tariff.HeadingPath(id), nil
		},
	})
	r.Register(Endpoint{
		Use:   "commodity <id>",
		Short: "Retrieve a commodity",
		Args:  cobra.ExactArgs(1),
		Flags: variantFlags(FlagChanges),
		Path: func(c Call) (string, error) {
			if c.Bool(FlagChanges) {
				return tariff.CommodityChangesPath(c.Args[0]), nil
			}
			return tariff.CommodityPath(c.Args[0]), nil
		},
	})
	r.Register(Endpoint{
		Parent:  "quotas",
		Use:     "search",
		Short:   "Search quota definitions",
		Example: "  uktt quotas search --param goods_nomenclature_item_id=0805102200 --param year=2020",
		Args:    cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.StringArray(FlagParam, nil, "Search parameter as key=value (repeatable)")
		},
		Path: func(c Call) (string, error) {
			raw, _ := c.Flags.GetStringArray(FlagParam)
			params, err := ParseParams(raw)
			if err != nil {
				return "", err
			}
			return tariff.QuotaSearchPath(params), nil
		},
	})
	r.Register(Endpoint{
		Use:   "countries",
		Short: "Retrieve geographical area countries",
		Args:  cobra.NoArgs,
		Path:  func(Call) (string, error) { return tariff.CountriesPath(), nil },
	})

	return r
}

// ParseParams parses key=value pairs into query values.
func ParseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", p)
		}
		params.Add(k, v)
	}
	return params, nil
}

func goodsPath(c Call, kind, id string) (string, error) {
	if c.APIVersion != "v2" {
		return "", fmt.Errorf("goods nomenclature %w (use --api-version v2)", ErrRequiresV2)
	}
	return tariff.GoodsNomenclaturesPath(kind, id), nil
}

var variantUsage = map[string]string{
	FlagGoods:   "Retrieve the goods nomenclature (v2 only)",
	FlagNote:    "Retrieve the note",
	FlagChanges: "Retrieve changes",
}

var variantShorthand = map[string]string{
	FlagGoods:   "g",
	FlagNote:    "n",
	FlagChanges: "c",
}

func variantFlags(names ...string) func(fs *pflag.FlagSet) {
	return func(fs *pflag.FlagSet) {
		for _, name := range names {
			fs.BoolP(name, variantShorthand[name], false, variantUsage[name])
		}
	}
}
