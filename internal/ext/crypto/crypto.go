// Package crypto is the `require("crypto")` façade spec.md 1 calls out
// as an external collaborator reached "through a narrow façade": a
// stdlib extension module, not part of the Lua 5.4 core itself, built
// on golang.org/x/crypto per SPEC_FULL.md section B.
//
// Grounded on the teacher's internal/database package idiom (a Go
// struct wrapped in a handle, exposed to script code through a small
// set of named operations) applied to a stateless hashing/KDF surface
// instead of a stateful connection.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"

	"lua/internal/luaerr"
	"lua/internal/value"
)

// Preload is installed at package.preload["crypto"] (spec.md 4.7 step
// 3): require("crypto") calls it and the returned table becomes the
// module.
func Preload(args []value.Value) ([]value.Value, error) {
	mod := value.NewTable(0, 8)

	set(mod, "bcrypt_hash", bcryptHash)
	set(mod, "bcrypt_verify", bcryptVerify)
	set(mod, "sha3_256", sha3Sum)
	set(mod, "pbkdf2_hmac_sha256", pbkdf2Derive)
	set(mod, "random_bytes", randomBytes)

	return []value.Value{mod}, nil
}

func set(t *value.Table, name string, fn value.GoFunc) {
	t.RawSet(value.NewString(name), value.NewGoFunc("crypto."+name, fn))
}

func argAt(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Nil{}
}

// bcryptHash(password [, cost]) -> hash
func bcryptHash(args []value.Value) ([]value.Value, error) {
	pw, ok := argAt(args, 0).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'bcrypt_hash' (string expected)")
	}
	cost := bcrypt.DefaultCost
	if n, ok := value.ToInteger(argAt(args, 1)); ok {
		cost = int(n)
	}
	hash, err := bcrypt.GenerateFromPassword(pw.Bytes(), cost)
	if err != nil {
		return nil, luaerr.New(luaerr.UserError, err.Error()).WithCause(err)
	}
	return []value.Value{value.NewString(string(hash))}, nil
}

// bcrypt_verify(password, hash) -> bool
func bcryptVerify(args []value.Value) ([]value.Value, error) {
	pw, ok := argAt(args, 0).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'bcrypt_verify' (string expected)")
	}
	hash, ok := argAt(args, 1).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'bcrypt_verify' (string expected)")
	}
	err := bcrypt.CompareHashAndPassword(hash.Bytes(), pw.Bytes())
	return []value.Value{value.Bool(err == nil)}, nil
}

// sha3_256(data) -> 32-byte digest as a string
func sha3Sum(args []value.Value) ([]value.Value, error) {
	data, ok := argAt(args, 0).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'sha3_256' (string expected)")
	}
	sum := sha3.Sum256(data.Bytes())
	return []value.Value{value.NewBytes(sum[:])}, nil
}

// pbkdf2_hmac_sha256(password, salt, iterations, keylen) -> key
func pbkdf2Derive(args []value.Value) ([]value.Value, error) {
	pw, ok := argAt(args, 0).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'pbkdf2_hmac_sha256' (string expected)")
	}
	salt, ok := argAt(args, 1).(*value.Bytes)
	if !ok {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'pbkdf2_hmac_sha256' (string expected)")
	}
	iters, _ := value.ToInteger(argAt(args, 2))
	if iters <= 0 {
		iters = 4096
	}
	keylen, _ := value.ToInteger(argAt(args, 3))
	if keylen <= 0 {
		keylen = 32
	}
	key := pbkdf2.Key(pw.Bytes(), salt.Bytes(), int(iters), int(keylen), sha256.New)
	return []value.Value{value.NewBytes(key)}, nil
}

// random_bytes(n) -> n cryptographically random bytes
func randomBytes(args []value.Value) ([]value.Value, error) {
	n, ok := value.ToInteger(argAt(args, 0))
	if !ok || n < 0 {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'random_bytes' (positive integer expected)")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, luaerr.New(luaerr.UserError, err.Error()).WithCause(err)
	}
	return []value.Value{value.NewBytes(buf)}, nil
}
