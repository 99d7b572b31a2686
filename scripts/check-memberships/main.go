// check-memberships reports workspaces and users whose membership state is
// inconsistent, and optionally repairs current workspace pointers.
//
// Checks:
// - workspaces without any OWNER membership
// - workspaces whose owner_id user is not an OWNER member
// - users whose current workspace is one they do not belong to, or who
//   have no current workspace while holding memberships
//
// Only current workspace pointers are repaired; ownership problems need a
// human decision and are reported.
//
// Usage: go run ./scripts/check-memberships [-dry-run=false]
//
// Database connection: Uses standard PG* environment variables
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Report problems without repairing current workspace pointers")
	flag.Parse()

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to repair current workspace pointers")
		fmt.Println()
	}

	ownerless, err := reportOwnerlessWorkspaces(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Owner check failed: %v\n", err)
		os.Exit(1)
	}

	dangling, err := repairCurrentWorkspaces(ctx, conn, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Current workspace check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nWorkspaces with ownership problems: %d\n", ownerless)
	if *dryRun {
		fmt.Printf("Users with a stale current workspace: %d\n", dangling)
	} else {
		fmt.Printf("Users repaired: %d\n", dangling)
	}
	if ownerless > 0 {
		os.Exit(2)
	}
}

func reportOwnerlessWorkspaces(ctx context.Context, conn *pgx.Conn) (int, error) {
	rows, err := conn.Query(ctx, `
		SELECT w.id, w.name,
		       COUNT(m.id) FILTER (WHERE r.name = 'OWNER') AS owners,
		       BOOL_OR(m.user_id = w.owner_id AND r.name = 'OWNER') AS creator_is_owner
		FROM workspaces w
		LEFT JOIN workspace_members m ON m.workspace_id = w.id
		LEFT JOIN roles r ON r.id = m.role_id
		GROUP BY w.id, w.name
		HAVING COUNT(m.id) FILTER (WHERE r.name = 'OWNER') = 0
		    OR NOT COALESCE(BOOL_OR(m.user_id = w.owner_id AND r.name = 'OWNER'), false)
		ORDER BY w.name
	`)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var id uuid.UUID
		var name string
		var owners int
		var creatorIsOwner *bool
		if err := rows.Scan(&id, &name, &owners, &creatorIsOwner); err != nil {
			return 0, fmt.Errorf("scan failed: %w", err)
		}
		count++
		if owners == 0 {
			fmt.Printf("  [no owner] %s %q\n", id, truncate(name, 40))
		} else {
			fmt.Printf("  [creator not owner] %s %q (%d owners)\n", id, truncate(name, 40), owners)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration failed: %w", err)
	}
	if count == 0 {
		fmt.Println("  Every workspace has its creator as OWNER")
	}
	return count, nil
}

// repairCurrentWorkspaces points each affected user at their earliest
// remaining membership, or clears the pointer when they have none.
func repairCurrentWorkspaces(ctx context.Context, conn *pgx.Conn, dryRun bool) (int, error) {
	rows, err := conn.Query(ctx, `
		SELECT u.id, u.email, u.current_workspace_id,
		       (SELECT m.workspace_id FROM workspace_members m
		        WHERE m.user_id = u.id ORDER BY m.joined_at LIMIT 1) AS fallback
		FROM users u
		WHERE (u.current_workspace_id IS NOT NULL AND NOT EXISTS (
		           SELECT 1 FROM workspace_members m
		           WHERE m.user_id = u.id AND m.workspace_id = u.current_workspace_id))
		   OR (u.current_workspace_id IS NULL AND EXISTS (
		           SELECT 1 FROM workspace_members m WHERE m.user_id = u.id))
	`)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}

	type fix struct {
		userID   uuid.UUID
		email    string
		current  *uuid.UUID
		fallback *uuid.UUID
	}
	var fixes []fix
	for rows.Next() {
		var f fix
		if err := rows.Scan(&f.userID, &f.email, &f.current, &f.fallback); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan failed: %w", err)
		}
		fixes = append(fixes, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration failed: %w", err)
	}

	for _, f := range fixes {
		fmt.Printf("  [current workspace] %s: %s -> %s\n", f.email, formatID(f.current), formatID(f.fallback))
		if dryRun {
			continue
		}
		if _, err := conn.Exec(ctx,
			`UPDATE users SET current_workspace_id = $1, updated_at = now() WHERE id = $2`,
			f.fallback, f.userID); err != nil {
			return 0, fmt.Errorf("update failed for user %s: %w", f.userID, err)
		}
	}
	if len(fixes) == 0 {
		fmt.Println("  Every current workspace pointer is valid")
	}
	return len(fixes), nil
}

func formatID(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "teamwork")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "teamwork")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
