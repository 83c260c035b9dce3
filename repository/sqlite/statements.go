package sqlite

import "fmt"

const (
	findRevisionQuery = `
        SELECT transcript_id, segment_index, model_id, text, created_at
        FROM revisions
        WHERE transcript_id = ? AND segment_index = ? AND model_id = ?
    `

	saveRevisionQuery = `
        INSERT INTO revisions (
            transcript_id, segment_index, model_id, text, created_at
        ) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (transcript_id, segment_index, model_id)
        DO UPDATE SET text = excluded.text, created_at = excluded.created_at
    `
)

func (db *DB) prepareStatements() error {
	var err error

	if db.statements.find, err = db.conn.Prepare(findRevisionQuery); err != nil {
		return fmt.Errorf("failed to prepare find statement: %w", err)
	}
	if db.statements.save, err = db.conn.Prepare(saveRevisionQuery); err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	return nil
}
