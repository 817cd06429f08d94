package doc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dCommerce/cmd/util"
	ldoc "github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [collection] [json|-]",
		Short: "Creates a document and prints its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := util.ParseDocument(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			id, err := rpcStore.Create(args[0], d)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	readCmd = &cobra.Command{
		Use:   "read [collection] [id]",
		Short: "Reads a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, found, err := rpcStore.Read(args[0], args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s/%s not found", args[0], args[1])
			}
			return util.PrintJSON(d)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [collection] [id] [json|-]",
		Short: "Merges the given fields into a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := util.ParseDocument(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}
			found, err := rpcStore.Update(args[0], args[1], partial)
			if err != nil {
				return err
			}
			fmt.Printf("collection=%s, id=%s, updated=%t\n", args[0], args[1], found)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [collection] [id]",
		Short: "Deletes a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := rpcStore.Delete(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("collection=%s, id=%s, deleted=%t\n", args[0], args[1], found)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [collection]",
		Short: "Lists the documents of a collection in insertion order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			docs, err := rpcStore.List(args[0], limit, offset, filters)
			if err != nil {
				return err
			}
			return util.PrintJSON(docs)
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search [collection] [text]",
		Short: "Case-insensitive substring search over text fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, _ := cmd.Flags().GetStringSlice("fields")
			limit, _ := cmd.Flags().GetInt("limit")
			docs, err := rpcStore.Search(args[0], args[1], fields, limit)
			if err != nil {
				return err
			}
			return util.PrintJSON(docs)
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [collection]",
		Short: "Counts the documents matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(cmd)
			if err != nil {
				return err
			}
			n, err := rpcStore.Count(args[0], filters)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [collection] [json|-]",
		Short: "Runs a paged query (filters, search, orderBy, skip, top)",
		Long: `Runs a paged query. The query is a JSON object, e.g.
{"filters": {"status": "Active"}, "search": {"text": "lamp", "fields": ["name"]},
 "orderBy": [{"field": "price", "isDescending": true}], "skip": 0, "top": 10}`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := util.ReadJSONArg(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var spec query.Spec
			if err := json.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("invalid query: %w", err)
			}
			page, err := rpcStore.Query(args[0], spec)
			if err != nil {
				return err
			}
			return util.PrintJSON(page)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			return util.PrintJSON(info)
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{listCmd, countCmd} {
		key := "filter"
		cmd.Flags().StringArray(key, nil, util.WrapString("Equality filter field=value, the value is parsed as JSON and falls back to a string (repeatable)"))
	}

	key := "limit"
	listCmd.Flags().Int(key, query.DefaultLimit, util.WrapString("Maximum number of documents"))
	searchCmd.Flags().Int(key, query.DefaultLimit, util.WrapString("Maximum number of documents"))

	key = "offset"
	listCmd.Flags().Int(key, 0, util.WrapString("Number of documents to skip"))

	key = "fields"
	searchCmd.Flags().StringSlice(key, nil, util.WrapString("Fields to search (default name, description, email, phone, sku)"))
}

// parseFilters reads the --filter flags of cmd
func parseFilters(cmd *cobra.Command) (query.Filters, error) {
	raw, _ := cmd.Flags().GetStringArray("filter")
	return ParseFilters(raw)
}

// ParseFilters turns field=value pairs into query filters. The value is parsed as JSON
// (numbers, booleans, null, lists, objects); anything else is taken as a string.
func ParseFilters(raw []string) (query.Filters, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(query.Filters, len(raw))
	for _, f := range raw {
		field, value, ok := strings.Cut(f, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q (expected field=value)", f)
		}
		var v ldoc.Value
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = ldoc.Str(value)
		}
		filters[field] = v
	}
	return filters, nil
}
