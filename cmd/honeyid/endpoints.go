package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/honeyid/protocol"
)

var errUnknownEndpoint = errors.New("honeyid: unknown endpoint")

func newEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints [code|name]",
		Short: "List the identity service and App endpoints",
		Long: "Without an argument, lists every endpoint. With a method code or a\n" +
			"case-insensitive endpoint name, describes that endpoint on each side.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeEndpoints(cmd.OutOrStdout())
			}
			return writeMatches(cmd.OutOrStdout(), args[0])
		},
	}
}

var endpointTables = []struct {
	side  string
	table []protocol.Endpoint
}{
	{"identity", protocol.IdentityServiceEndpoints},
	{"app", protocol.AppEndpoints},
}

func writeEndpoints(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tMETHOD\tNAME\tROLES")
	for _, t := range endpointTables {
		for _, e := range t.table {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.side, e.Method, e.Name, roleList(e.Roles))
		}
	}
	return tw.Flush()
}

// writeMatches prints every table entry matching query, a method code or
// an endpoint name. PublicConnect and ApiKeyConnect appear on both sides.
func writeMatches(w io.Writer, query string) error {
	code, codeErr := strconv.ParseUint(query, 10, 32)
	found := false
	for _, t := range endpointTables {
		var (
			e  protocol.Endpoint
			ok bool
		)
		if codeErr == nil {
			e, ok = protocol.LookupEndpoint(t.table, protocol.Method(code))
		} else {
			e, ok = protocol.LookupByLowerName(t.table, strings.ToLower(query))
		}
		if !ok {
			continue
		}
		found = true
		if _, err := fmt.Fprintf(w, "%s %d %s [%s] %s\n", t.side, e.Method, e.Name, roleList(e.Roles), e.Description); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", errUnknownEndpoint, query)
	}
	return nil
}

func roleList(roles []protocol.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}
