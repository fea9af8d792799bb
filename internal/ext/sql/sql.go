// Package sql is the `require("sql")` façade: a luasql-style generic
// database/sql binding, a stdlib extension beyond spec.md's core
// (spec.md 1 scopes "concrete filesystem/stdio bindings" out as an
// external collaborator reached through a narrow façade; this is that
// façade's database-flavored sibling, built for the domain stack
// SPEC_FULL.md section B enumerates).
//
// Grounded on the teacher's internal/database package and
// internal/vm/database_bindings.go (`DBManager.Connect`/`.Query`/
// `.Exec`, results marshaled back into script values) — the same
// connect/query/exec/close shape, retargeted at `*value.Table`/
// `*value.Userdata` instead of the teacher's native-function registry.
package sql

import (
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"lua/internal/luaerr"
	"lua/internal/value"
)

type conn struct {
	db      *sql.DB
	driver  string
	queries int64
}

// Preload is installed at package.preload["sql"]; require("sql") calls
// it and the returned table becomes the module.
func Preload(args []value.Value) ([]value.Value, error) {
	mod := value.NewTable(0, 4)
	connMeta := value.NewTable(0, 8)
	connMeta.RawSet(value.NewString("__index"), connMeta)
	connMeta.RawSet(value.NewString("__name"), value.NewString("sql.connection"))

	set(mod, "open", func(args []value.Value) ([]value.Value, error) {
		driver, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'open' (string expected)")
		}
		dsn, ok := argAt(args, 1).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'open' (string expected)")
		}
		driverName, err := resolveDriver(driver.String())
		if err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		db, oerr := sql.Open(driverName, dsn.String())
		if oerr != nil {
			return []value.Value{value.Nil{}, value.NewString(oerr.Error())}, nil
		}
		if perr := db.Ping(); perr != nil {
			return []value.Value{value.Nil{}, value.NewString(perr.Error())}, nil
		}
		ud := value.NewUserdata(&conn{db: db, driver: driverName})
		ud.SetMetatable(connMeta)
		return []value.Value{ud}, nil
	})

	set(connMeta, "query", func(args []value.Value) ([]value.Value, error) {
		c, err := asConn(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		stmt, ok := argAt(args, 1).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'query' (string expected)")
		}
		params := toDriverArgs(args[2:])
		rows, qerr := c.db.Query(stmt.String(), params...)
		if qerr != nil {
			return []value.Value{value.Nil{}, value.NewString(qerr.Error())}, nil
		}
		defer rows.Close()
		c.queries++
		cols, cerr := rows.Columns()
		if cerr != nil {
			return []value.Value{value.Nil{}, value.NewString(cerr.Error())}, nil
		}
		result := value.NewTable(0, 16)
		idx := int64(1)
		for rows.Next() {
			scanDest := make([]any, len(cols))
			scanBuf := make([]any, len(cols))
			for i := range scanBuf {
				scanDest[i] = &scanBuf[i]
			}
			if serr := rows.Scan(scanDest...); serr != nil {
				return []value.Value{value.Nil{}, value.NewString(serr.Error())}, nil
			}
			row := value.NewTable(0, len(cols))
			for i, col := range cols {
				row.RawSet(value.NewString(col), goToLua(scanBuf[i]))
			}
			result.RawSet(value.Int(idx), row)
			idx++
		}
		return []value.Value{result}, nil
	})

	set(connMeta, "exec", func(args []value.Value) ([]value.Value, error) {
		c, err := asConn(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		stmt, ok := argAt(args, 1).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'exec' (string expected)")
		}
		params := toDriverArgs(args[2:])
		res, eerr := c.db.Exec(stmt.String(), params...)
		if eerr != nil {
			return []value.Value{value.Nil{}, value.NewString(eerr.Error())}, nil
		}
		c.queries++
		affected, _ := res.RowsAffected()
		lastID, _ := res.LastInsertId()
		return []value.Value{value.Int(affected), value.Int(lastID)}, nil
	})

	set(connMeta, "close", func(args []value.Value) ([]value.Value, error) {
		c, err := asConn(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		if cerr := c.db.Close(); cerr != nil {
			return []value.Value{value.Bool(false), value.NewString(cerr.Error())}, nil
		}
		return []value.Value{value.Bool(true)}, nil
	})

	// stats() -> human-readable connection/query counters, the one
	// place this module exercises dustin/go-humanize (SPEC_FULL.md
	// section B).
	set(connMeta, "stats", func(args []value.Value) ([]value.Value, error) {
		c, err := asConn(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		dbStats := c.db.Stats()
		summary := fmt.Sprintf(
			"driver=%s open_connections=%s queries=%s in_use=%s",
			c.driver,
			humanize.Comma(int64(dbStats.OpenConnections)),
			humanize.Comma(c.queries),
			humanize.Comma(int64(dbStats.InUse)),
		)
		return []value.Value{value.NewString(summary)}, nil
	})

	return []value.Value{mod}, nil
}

func set(t *value.Table, name string, fn value.GoFunc) {
	t.RawSet(value.NewString(name), value.NewGoFunc("sql."+name, fn))
}

func argAt(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Nil{}
}

func resolveDriver(name string) (string, error) {
	switch name {
	case "postgres", "postgresql", "pq":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver '%s'", name)
	}
}

func asConn(v value.Value) (*conn, error) {
	ud, ok := v.(*value.Userdata)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument (sql.connection expected)")
	}
	c, ok := ud.Data.(*conn)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument (sql.connection expected)")
	}
	return c, nil
}

func toDriverArgs(vals []value.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case value.Int:
			out[i] = int64(x)
		case value.Float:
			out[i] = float64(x)
		case value.Bool:
			out[i] = bool(x)
		case *value.Bytes:
			out[i] = x.String()
		default:
			out[i] = nil
		}
	}
	return out
}

func goToLua(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Nil{}
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	case []byte:
		return value.NewBytes(x)
	case string:
		return value.NewString(x)
	default:
		return value.NewString(fmt.Sprintf("%v", x))
	}
}
