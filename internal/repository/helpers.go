package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// insertErr maps a failed INSERT onto the package sentinels.
func insertErr(err error) error {
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// rowErr maps sql.ErrNoRows to ErrNotFound.
func rowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected returns ErrNotFound when an UPDATE/DELETE touched nothing.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ensureID assigns a fresh uuid when id is empty.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// now is the UTC clock every store stamps rows with.
func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// stamp fills a zero creation time with now.
func stamp(at *time.Time) {
	if at.IsZero() {
		*at = now()
	}
}

// nullable stores empty strings as NULL so unique indexes ignore them.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// jsonList encodes a string slice for a JSON column.
func jsonList(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	return json.Marshal(v)
}

// scanList decodes a JSON column into a string slice; NULL becomes empty.
func scanList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// rawJSON keeps a nullable JSON column as raw bytes.
func rawJSON(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return []byte(v)
}
