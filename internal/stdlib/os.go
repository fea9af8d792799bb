package stdlib

// OS library (spec.md 4.9's process/host-facing surface, scoped to the
// pieces that are not themselves external collaborators): date/time,
// clock, getenv, tmpname, and an exit/execute pair.
//
// Grounded on the teacher's os.* bindings
// (sentra/internal/webclient and sentra/internal/filesystem wrap raw
// os/exec and os package calls directly); this package keeps that
// direct-stdlib-call shape since os.date/os.time/os.clock have no
// idiomatic third-party replacement in the retrieved pack.

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"lua/internal/ext/osext"
	"lua/internal/luaerr"
	"lua/internal/value"
)

var processStart = time.Now()

func installOS(h Host) {
	lib := newLib(h.Globals(), "os")

	set(lib, "time", func(args []value.Value) ([]value.Value, error) {
		if t, ok := argAt(args, 0).(*value.Table); ok {
			return one(value.Int(tableToTime(t).Unix())), nil
		}
		return one(value.Int(time.Now().Unix())), nil
	})

	set(lib, "clock", func(args []value.Value) ([]value.Value, error) {
		return one(value.Float(time.Since(processStart).Seconds())), nil
	})

	set(lib, "difftime", func(args []value.Value) ([]value.Value, error) {
		t2, _ := value.AsFloat(argAt(args, 0))
		t1, _ := value.AsFloat(argAt(args, 1))
		return one(value.Float(t2 - t1)), nil
	})

	set(lib, "date", func(args []value.Value) ([]value.Value, error) {
		format := "%c"
		if s, ok := argAt(args, 0).(*value.Bytes); ok {
			format = s.String()
		}
		t := time.Now()
		if len(args) > 1 {
			if secs, ok := value.ToInteger(args[1]); ok {
				t = time.Unix(secs, 0)
			}
		}
		utc := strings.HasPrefix(format, "!")
		if utc {
			format = format[1:]
			t = t.UTC()
		} else {
			t = t.Local()
		}
		if strings.HasPrefix(format, "*t") {
			return one(timeToTable(t)), nil
		}
		return one(value.NewString(strftime.Format(format, t))), nil
	})

	set(lib, "getenv", func(args []value.Value) ([]value.Value, error) {
		name, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return one(value.Nil{}), nil
		}
		v, ok := os.LookupEnv(name.String())
		if !ok {
			return one(value.Nil{}), nil
		}
		return one(value.NewString(v)), nil
	})

	set(lib, "tmpname", func(args []value.Value) ([]value.Value, error) {
		return one(value.NewString(osext.TmpName())), nil
	})

	set(lib, "remove", func(args []value.Value) ([]value.Value, error) {
		name, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'remove' (string expected)")
		}
		if err := os.Remove(name.String()); err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		return one(value.Bool(true)), nil
	})

	set(lib, "rename", func(args []value.Value) ([]value.Value, error) {
		from, _ := argAt(args, 0).(*value.Bytes)
		to, _ := argAt(args, 1).(*value.Bytes)
		if from == nil || to == nil {
			return nil, luaerr.New(luaerr.TypeError, "bad argument to 'rename' (string expected)")
		}
		if err := os.Rename(from.String(), to.String()); err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		return one(value.Bool(true)), nil
	})

	set(lib, "execute", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return one(value.Bool(true)), nil
		}
		cmdline, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return one(value.Bool(false)), nil
		}
		cmd := exec.Command("/bin/sh", "-c", cmdline.String())
		err := cmd.Run()
		if err != nil {
			return []value.Value{value.Nil{}, value.NewString("exit"), value.Int(1)}, nil
		}
		return []value.Value{value.Bool(true), value.NewString("exit"), value.Int(0)}, nil
	})

	set(lib, "exit", func(args []value.Value) ([]value.Value, error) {
		code := 0
		if len(args) > 0 {
			if b, ok := args[0].(value.Bool); ok {
				if !bool(b) {
					code = 1
				}
			} else if n, ok := value.ToInteger(args[0]); ok {
				code = int(n)
			}
		}
		for _, err := range h.CloseFinalizers() {
			_ = err
		}
		os.Exit(code)
		return nil, nil
	})
}

func tableToTime(t *value.Table) time.Time {
	field := func(name string, def int) int {
		v := t.RawGet(value.NewString(name))
		if n, ok := value.ToInteger(v); ok {
			return int(n)
		}
		return def
	}
	return time.Date(
		field("year", 1970), time.Month(field("month", 1)), field("day", 1),
		field("hour", 12), field("min", 0), field("sec", 0), 0, time.Local,
	)
}

func timeToTable(t time.Time) *value.Table {
	out := value.NewTable(0, 8)
	out.RawSet(value.NewString("year"), value.Int(int64(t.Year())))
	out.RawSet(value.NewString("month"), value.Int(int64(t.Month())))
	out.RawSet(value.NewString("day"), value.Int(int64(t.Day())))
	out.RawSet(value.NewString("hour"), value.Int(int64(t.Hour())))
	out.RawSet(value.NewString("min"), value.Int(int64(t.Minute())))
	out.RawSet(value.NewString("sec"), value.Int(int64(t.Second())))
	out.RawSet(value.NewString("wday"), value.Int(int64(t.Weekday())+1))
	out.RawSet(value.NewString("yday"), value.Int(int64(t.YearDay())))
	out.RawSet(value.NewString("isdst"), value.Bool(false))
	return out
}
