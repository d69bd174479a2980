package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"
)

// storeListResponse mirrors internal/httpapi's handleList response
// body closely enough to render the fields an operator cares about
// without importing internal/core just for this debug path.
type storeListResponse struct {
	Kind      string           `json:"kind"`
	Namespace string           `json:"namespace"`
	Items     []map[string]any `json:"items"`
}

// newStoreCommand is a thin debug client against the running gateway's
// deprecated HTTP fallback surface: it prints the current Store
// snapshot for one kind as a table, for an operator who wants a quick
// look without opening a WebSocket client.
func newStoreCommand() *cobra.Command {
	var (
		address   string
		namespace string
	)

	cmd := &cobra.Command{
		Use:     "store <kind>",
		Short:   "Print the running gateway's current Store snapshot for a kind",
		Example: "k8s-live-gateway store pod --address=http://localhost:8080 --namespace=default",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStoreSnapshot(cmd, address, args[0], namespace)
		},
	}

	cmd.Flags().StringVar(&address, "address", "http://localhost:8080", "base address of a running gateway")
	cmd.Flags().StringVar(&namespace, "namespace", "", "restrict the snapshot to one namespace")

	return cmd
}

func printStoreSnapshot(cmd *cobra.Command, address, kind, namespace string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("parse --address: %w", err)
	}
	u.Path = "/api/v1/" + kind
	if namespace != "" {
		q := u.Query()
		q.Set("namespace", namespace)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("query gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %s for %s", resp.Status, u.String())
	}

	var body storeListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	t := table.New(os.Stdout)
	t.SetHeaders("Namespace", "Name", "UID", "ResourceVersion")
	for _, item := range body.Items {
		t.AddRow(
			stringField(item, "Namespace"),
			stringField(item, "Name"),
			stringField(item, "UID"),
			stringField(item, "ResourceVersion"),
		)
	}
	t.Render()

	return nil
}

func stringField(item map[string]any, key string) string {
	v, ok := item[key]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
