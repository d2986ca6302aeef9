// Command taskdeck is a CLI client for the task state sync service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
	"github.com/yaxxsin/task-management-prod-sub001/internal/syncclient"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- config dirs ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "taskdeck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "taskdeck")
}

func dataDir() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "taskdeck", "state")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "taskdeck", "state")
}

func fallbackDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		cache = os.TempDir()
	}
	return filepath.Join(cache, "taskdeck", "state")
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `taskdeck CLI
Usage:
  taskdeck -addr URL <cmd> [args]

Commands:
  version
  register    -email <email> -p <password> [-name <displayName>]
  login       -email <email> -p <password>        (saves token)
  logout
  load        [-key <name>]                       (merge local+remote+shared)
  save        [-key <name>] -file <doc.json|->
  invite      -email <email> -type <resourceType> -id <resourceId> [-perm view|edit]
  invitations
  accept      -id <grantId>
  members     -type <resourceType> -id <resourceId>
  leave       -type <resourceType> -id <resourceId>
  propagate   -owner <userId> -type <itemType> -file <item.json|->
  shared
`)
	os.Exit(2)
}

// ---- thin REST helpers for the sharing endpoints ----

type api struct {
	addr    string
	session *syncclient.Session
	client  *http.Client
}

func (a *api) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.addr+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := a.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		return nil, errors.New("no valid token (login required)")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

// main dispatches subcommands.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	key := flag.String("key", model.PrimaryDocumentName, "document key for load/save")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	session := syncclient.NewSession(cfgDir())
	cache := syncclient.NewCache(dataDir(), fallbackDir(), logger)
	remote := syncclient.NewHTTPRemote(*addr, http.DefaultClient, session, logger)
	engine := syncclient.NewEngine(cache, remote, session, logger)
	restAPI := &api{addr: *addr, session: session, client: http.DefaultClient}

	switch cmd {

	case "version":
		fmt.Printf("taskdeck %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "email")
		pass := fs.String("p", "", "password")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(args)
		body, err := json.Marshal(map[string]string{"email": *email, "password": *pass, "displayName": *name})
		if err != nil {
			fatal(err)
		}
		resp, err := http.Post(*addr+"/api/register", "application/json", bytes.NewReader(body))
		if err != nil {
			fatal(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 300 {
			fatal(fmt.Errorf("register: status %d: %s", resp.StatusCode, bytes.TrimSpace(data)))
		}
		os.Stdout.Write(data)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		pass := fs.String("p", "", "password")
		_ = fs.Parse(args)
		body, err := json.Marshal(map[string]string{"email": *email, "password": *pass})
		if err != nil {
			fatal(err)
		}
		resp, err := http.Post(*addr+"/api/login", "application/json", bytes.NewReader(body))
		if err != nil {
			fatal(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 300 {
			fatal(fmt.Errorf("login: status %d: %s", resp.StatusCode, bytes.TrimSpace(data)))
		}
		var lr struct {
			AccessToken string    `json:"accessToken"`
			ExpiresAt   time.Time `json:"expiresAt"`
			User        struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"user"`
		}
		if err := json.Unmarshal(data, &lr); err != nil {
			fatal(err)
		}
		if err := session.Save(lr.AccessToken, lr.User.ID, lr.User.Email, lr.ExpiresAt); err != nil {
			fatal(err)
		}
		fmt.Println("logged in as", lr.User.Email)

	case "logout":
		if err := session.Clear(); err != nil {
			fatal(err)
		}
		fmt.Println("logged out")

	case "load":
		doc, err := engine.Load(ctx, *key)
		if err != nil {
			fatal(err)
		}
		if doc == nil {
			fmt.Println("null")
			return
		}
		os.Stdout.Write(append(doc, '\n'))

	case "save":
		fs := flag.NewFlagSet("save", flag.ExitOnError)
		file := fs.String("file", "-", "document JSON file (- for stdin)")
		_ = fs.Parse(args)
		doc, err := readAll(*file)
		if err != nil {
			fatal(err)
		}
		if !json.Valid(doc) {
			fatal(errors.New("document is not valid JSON"))
		}
		if err := engine.Save(ctx, *key, doc); err != nil {
			fatal(err)
		}

	case "invite":
		fs := flag.NewFlagSet("invite", flag.ExitOnError)
		email := fs.String("email", "", "invitee email")
		rtype := fs.String("type", "space", "resource type")
		rid := fs.String("id", "", "resource id")
		perm := fs.String("perm", "view", "permission (view|edit)")
		_ = fs.Parse(args)
		data, err := restAPI.request(ctx, http.MethodPost, "/api/invite", map[string]string{
			"email": *email, "resourceType": *rtype, "resourceId": *rid, "permission": *perm,
		})
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(data)

	case "invitations":
		data, err := restAPI.request(ctx, http.MethodGet, "/api/invitations", nil)
		if err != nil {
			fatal(err)
		}
		var out []map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			fatal(err)
		}
		printJSON(out)

	case "accept":
		fs := flag.NewFlagSet("accept", flag.ExitOnError)
		id := fs.String("id", "", "grant id")
		_ = fs.Parse(args)
		if _, err := restAPI.request(ctx, http.MethodPost, "/api/invitations/"+*id+"/accept", nil); err != nil {
			fatal(err)
		}

	case "members":
		fs := flag.NewFlagSet("members", flag.ExitOnError)
		rtype := fs.String("type", "space", "resource type")
		rid := fs.String("id", "", "resource id")
		_ = fs.Parse(args)
		data, err := restAPI.request(ctx, http.MethodGet,
			"/api/resource/members?resourceType="+*rtype+"&resourceId="+*rid, nil)
		if err != nil {
			fatal(err)
		}
		var out []map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			fatal(err)
		}
		printJSON(out)

	case "leave":
		fs := flag.NewFlagSet("leave", flag.ExitOnError)
		rtype := fs.String("type", "space", "resource type")
		rid := fs.String("id", "", "resource id")
		_ = fs.Parse(args)
		if _, err := restAPI.request(ctx, http.MethodPost, "/api/shared/leave", map[string]string{
			"resourceType": *rtype, "resourceId": *rid,
		}); err != nil {
			fatal(err)
		}

	case "propagate":
		fs := flag.NewFlagSet("propagate", flag.ExitOnError)
		owner := fs.String("owner", "", "owner user id")
		itype := fs.String("type", "task", "item type")
		file := fs.String("file", "-", "item JSON file (- for stdin)")
		_ = fs.Parse(args)
		raw, err := readAll(*file)
		if err != nil {
			fatal(err)
		}
		var item model.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			fatal(fmt.Errorf("item is not a JSON object: %w", err))
		}
		if _, err := restAPI.request(ctx, http.MethodPost, "/api/shared/propagate", map[string]any{
			"ownerId": *owner, "type": *itype, "data": item,
		}); err != nil {
			fatal(err)
		}

	case "shared":
		data, err := restAPI.request(ctx, http.MethodGet, "/api/shared", nil)
		if err != nil {
			fatal(err)
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			fatal(err)
		}
		printJSON(out)

	default:
		usage()
	}
}
