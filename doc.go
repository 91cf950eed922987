// Package tally is the composition root for the tally record stores.
//
// A store is one document holding every record of a kind plus the id
// counter that numbers them. Ids are small positive integers; the id of a
// deleted record goes back to a free pool and the lowest free id is reused
// before a new one is minted. Every mutation rewrites the whole document
// (atomically, through a temp file and rename) before it returns.
//
// Two schemas ship with the module: expenses (pkg/expense) and tasks
// (pkg/task). Any type implementing core.Record can be stored with
// OpenTable.
//
// Backends:
//
//   - file (default): a JSON or YAML file, chosen by extension.
//   - sqlite: one row per store in a SQLite database.
//   - memory: for tests.
//
// Usage:
//
//	svc, err := tally.OpenTasks(ctx, tally.DefaultTaskFile,
//		tally.WithLocking(true),
//		tally.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	id, err := svc.Add(ctx, "water the plants")
package tally
