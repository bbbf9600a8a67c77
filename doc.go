// Package daybook is the composition root for the daybook note store.
//
// A daybook keeps one note per user per day. Each note has three free-text
// sections (how the day went, something learned, a quote or highlight) and
// lives in a remote hierarchical store as <root>/<username>/<YYYY-MM-DD>/note.json.
// Containers are found by name or created on first use; the store itself
// is reached only through the four primitives of core.Store, so the same
// service runs on a local directory, Google Drive, DynamoDB or PostgreSQL.
//
// Usage:
//
//	cfg := daybook.DefaultConfig()
//	cfg.FS.Path = "./notes"
//
//	rt, err := daybook.New(ctx, cfg, daybook.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	note, err := rt.Service.Save(ctx, "kgiri", "2024-01-31", daybook.Fields{
//		Reflection: "Long but good.",
//		Learning:   "Drive folders may share a name.",
//		Highlight:  "Make it work, then make it right.",
//	})
//
// Configuration is read from DAYBOOK_* environment variables, a .env file
// and an optional YAML file; see LoadConfig.
package daybook
