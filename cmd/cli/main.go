package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
)

var serverURL = envOr("STOCKLEDGER_URL", "http://localhost:8080")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "item":
		handleItem(args)
	case "audit":
		handleAudit(args)
	case "stats":
		showStats()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stockledger - inventory management CLI

Usage:
  stockledger auth <register|login|who>
  stockledger item <list|get|create|update|delete>
  stockledger audit <list|item>
  stockledger stats

Environment:
  STOCKLEDGER_URL  server base URL (default http://localhost:8080)`)
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: stockledger auth <register|login|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (min 8 characters)")
	fullName := fs.String("name", "", "full name")
	role := fs.String("role", "viewer", "role: admin, manager, or viewer")
	fs.Parse(args)

	body := map[string]string{
		"email":     *email,
		"username":  *username,
		"password":  *password,
		"full_name": *fullName,
		"role":      *role,
	}

	var user map[string]any
	if err := doJSON(http.MethodPost, "/auth/register", body, &user); err != nil {
		fatal(err)
	}
	fmt.Printf("registered user %v (%v) with role %v\n", user["username"], user["email"], user["role"])
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	body := map[string]string{"email": *email, "password": *password}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := doJSON(http.MethodPost, "/auth/login", body, &result); err != nil {
		fatal(err)
	}
	if err := saveToken(result.AccessToken); err != nil {
		fatal(err)
	}
	fmt.Printf("logged in, token valid for %d seconds\n", result.ExpiresIn)
}

func whoAmI() {
	var user map[string]any
	if err := doJSON(http.MethodGet, "/auth/me", nil, &user); err != nil {
		fatal(err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tEMAIL\tUSERNAME\tROLE\tACTIVE\n")
	fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
		user["id"], user["email"], user["username"], user["role"], user["is_active"])
	w.Flush()
}

func handleItem(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: stockledger item <list|get|create|update|delete>")
		return
	}

	switch args[0] {
	case "list":
		listItems(args[1:])
	case "get":
		getItem(args[1:])
	case "create":
		createItem(args[1:])
	case "update":
		updateItem(args[1:])
	case "delete":
		deleteItem(args[1:])
	default:
		fmt.Printf("unknown item command: %s\n", args[0])
	}
}

func listItems(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	search := fs.String("search", "", "substring match on name, sku, description")
	category := fs.String("category", "", "exact category match")
	skip := fs.Int("skip", 0, "offset")
	limit := fs.Int("limit", 100, "page size (max 1000)")
	fs.Parse(args)

	path := fmt.Sprintf("/inventory?search=%s&category=%s&skip=%d&limit=%d",
		*search, *category, *skip, *limit)

	var items []map[string]any
	if err := doJSON(http.MethodGet, path, nil, &items); err != nil {
		fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSKU\tNAME\tQTY\tPRICE\tCATEGORY\tLOCATION\n")
	for _, it := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			it["id"], it["sku"], it["name"], it["quantity"], it["unit_price"],
			it["category"], it["location"])
	}
	w.Flush()
}

func getItem(args []string) {
	if len(args) < 1 {
		fatal(fmt.Errorf("usage: stockledger item get <id>"))
	}
	var item map[string]any
	if err := doJSON(http.MethodGet, "/inventory/"+args[0], nil, &item); err != nil {
		fatal(err)
	}
	printIndented(item)
}

func createItem(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "item name")
	sku := fs.String("sku", "", "stock-keeping unit")
	description := fs.String("description", "", "description")
	quantity := fs.Int("quantity", 0, "quantity on hand")
	price := fs.Float64("price", 0, "unit price")
	category := fs.String("category", "", "category")
	location := fs.String("location", "", "storage location")
	fs.Parse(args)

	body := map[string]any{
		"name":        *name,
		"sku":         *sku,
		"description": *description,
		"quantity":    *quantity,
		"unit_price":  *price,
		"category":    *category,
		"location":    *location,
	}

	var item map[string]any
	if err := doJSON(http.MethodPost, "/inventory", body, &item); err != nil {
		fatal(err)
	}
	fmt.Printf("created item %v (sku %v)\n", item["id"], item["sku"])
}

func updateItem(args []string) {
	if len(args) < 1 {
		fatal(fmt.Errorf("usage: stockledger item update <id> [flags]"))
	}
	id := args[0]

	fs := flag.NewFlagSet("update", flag.ExitOnError)
	name := fs.String("name", "", "item name")
	quantity := fs.Int("quantity", -1, "quantity on hand")
	price := fs.Float64("price", -1, "unit price")
	category := fs.String("category", "", "category")
	location := fs.String("location", "", "storage location")
	fs.Parse(args[1:])

	// Only explicitly set flags participate in the update; everything
	// else stays out of the request so the server diffs just the
	// submitted fields.
	body := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			body["name"] = *name
		case "quantity":
			body["quantity"] = *quantity
		case "price":
			body["unit_price"] = *price
		case "category":
			body["category"] = *category
		case "location":
			body["location"] = *location
		}
	})

	var item map[string]any
	if err := doJSON(http.MethodPut, "/inventory/"+id, body, &item); err != nil {
		fatal(err)
	}
	fmt.Printf("updated item %v\n", item["id"])
}

func deleteItem(args []string) {
	if len(args) < 1 {
		fatal(fmt.Errorf("usage: stockledger item delete <id>"))
	}
	if err := doJSON(http.MethodDelete, "/inventory/"+args[0], nil, nil); err != nil {
		fatal(err)
	}
	fmt.Printf("deleted item %s\n", args[0])
}

func handleAudit(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: stockledger audit <list|item>")
		return
	}

	switch args[0] {
	case "list":
		listAudit("/audit")
	case "item":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: stockledger audit item <id>"))
		}
		listAudit("/audit/item/" + args[1])
	default:
		fmt.Printf("unknown audit command: %s\n", args[0])
	}
}

func listAudit(path string) {
	var logs []map[string]any
	if err := doJSON(http.MethodGet, path, nil, &logs); err != nil {
		fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tACTION\tITEM\tUSER\tTIMESTAMP\tCHANGES\n")
	for _, l := range logs {
		item := l["item_id"]
		if item == nil {
			item = "-"
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			l["id"], l["action"], item, l["user_id"], l["timestamp"], l["changes"])
	}
	w.Flush()
}

func showStats() {
	var stats map[string]any
	if err := doJSON(http.MethodGet, "/inventory/stats", nil, &stats); err != nil {
		fatal(err)
	}
	printIndented(stats)
}

// doJSON issues a request against the server, attaching the cached
// bearer token, and decodes the response into out when non-nil.
func doJSON(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := loadToken(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".stockledger", "token"), nil
}

func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func loadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printIndented(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
