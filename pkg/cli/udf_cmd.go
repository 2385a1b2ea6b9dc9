package cli

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/spf13/cobra"

	"colbridge/internal/domain"
	"colbridge/internal/typemap"
	"colbridge/internal/udf"
)

func newUDFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "udf",
		Short: "Evaluate the engine's scalar utility functions",
	}
	cmd.AddCommand(newUDFHashCmd(), newUDFTypeOfCmd(), newUDFUUIDCmd(), newUDFSessionCmd())
	return cmd
}

func newUDFHashCmd() *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "hash VALUE",
		Short: "FNV-1a hash of a value of the given engine type",
		Example: `  colbridge udf hash --type BIGINT 42
  colbridge udf hash --type "DECIMAL(10,2)" 12.34
  colbridge udf hash --type TIMESTAMP 2024-03-01T12:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := typemap.ParseEngineType(typeName)
			if err != nil {
				return err
			}
			h, err := hashValue(ct, args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"type": udf.TypeOf(ct), "hash": h})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cell(h))
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "STRING", "Engine type of VALUE")
	return cmd
}

// hashValue parses raw as a value of type ct and hashes it. The literal
// NULL hashes to NULL.
func hashValue(ct domain.ColumnType, raw string) (*int64, error) {
	if strings.EqualFold(raw, "NULL") {
		return nil, nil
	}
	switch ct.Tag {
	case domain.TypeBoolean:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, domain.ErrValidation("invalid BOOLEAN %q", raw)
		}
		return udf.FnvHash(&v), nil
	case domain.TypeTinyInt, domain.TypeSmallInt, domain.TypeInt, domain.TypeBigInt:
		return hashInteger(ct.Tag, raw)
	case domain.TypeFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, domain.ErrValidation("invalid FLOAT %q", raw)
		}
		f := float32(v)
		return udf.FnvHash(&f), nil
	case domain.TypeDouble:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domain.ErrValidation("invalid DOUBLE %q", raw)
		}
		return udf.FnvHash(&v), nil
	case domain.TypeString, domain.TypeVarchar, domain.TypeChar:
		return udf.FnvHashString(&raw), nil
	case domain.TypeTimestamp:
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, domain.ErrValidation("invalid TIMESTAMP %q: want RFC 3339", raw)
		}
		return udf.FnvHashTimestamp(&ts), nil
	case domain.TypeDecimal:
		n, err := decimal128.FromString(raw, int32(ct.Precision), int32(ct.Scale))
		if err != nil {
			return nil, domain.ErrValidation("invalid %s %q: %v", ct, raw, err)
		}
		return udf.FnvHashDecimal(&udf.Decimal{Unscaled: n, Precision: ct.Precision, Scale: ct.Scale}), nil
	}
	return nil, &domain.UnsupportedTypeError{Engine: ct.String()}
}

func hashInteger(tag domain.TypeTag, raw string) (*int64, error) {
	bits := map[domain.TypeTag]int{
		domain.TypeTinyInt: 8, domain.TypeSmallInt: 16, domain.TypeInt: 32, domain.TypeBigInt: 64,
	}[tag]
	v, err := strconv.ParseInt(raw, 10, bits)
	if err != nil {
		return nil, domain.ErrValidation("invalid %s %q", tag, raw)
	}
	switch bits {
	case 8:
		x := int8(v)
		return udf.FnvHash(&x), nil
	case 16:
		x := int16(v)
		return udf.FnvHash(&x), nil
	case 32:
		x := int32(v)
		return udf.FnvHash(&x), nil
	default:
		return udf.FnvHash(&v), nil
	}
}

func newUDFTypeOfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "typeof TYPE",
		Short: "Print the engine's name for a DuckDB type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := typemap.ParseEngineType(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), udf.TypeOf(ct))
			return nil
		},
	}
}

func newUDFUUIDCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "uuid",
		Short: "Generate random UUIDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen := udf.NewUUIDGenerator(nil)
			defer gen.Close()

			ids := make([]string, 0, count)
			for i := 0; i < count; i++ {
				id, err := gen.Next()
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of UUIDs")
	return cmd
}

func newUDFSessionCmd() *cobra.Command {
	var (
		effectiveUser string
		database      string
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show what the session introspection functions return",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := udf.Session{
				EffectiveUser: effectiveUser,
				Database:      database,
				Pid:           os.Getpid(),
				ServerVersion: fmt.Sprintf("colbridge version %s (commit: %s)", version, commit),
			}
			if u, err := user.Current(); err == nil {
				s.User = u.Username
			}

			result := map[string]interface{}{
				"user":             udf.User(s),
				"effective_user":   udf.EffectiveUser(s),
				"current_database": udf.CurrentDatabase(s),
				"pid":              udf.Pid(s),
				"version":          udf.Version(s),
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			rows := [][]string{
				{"user", cell(result["user"])},
				{"effective_user", cell(result["effective_user"])},
				{"current_database", cell(result["current_database"])},
				{"pid", cell(udf.Pid(s))},
				{"version", udf.Version(s)},
			}
			printTable(cmd.OutOrStdout(), []string{"FUNCTION", "VALUE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&effectiveUser, "as", "", "Delegated (effective) user")
	cmd.Flags().StringVar(&database, "database", "", "Current database")
	return cmd
}
