package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Seed data mirroring the demo realm: a handful of well-known titles and the
// demo users provisioned in the identity provider.
func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			INSERT INTO books (isbn, title, author, published_at, publisher, language, pages, description) VALUES
			('9780132350884', 'Clean Code', 'Robert C. Martin', 2008, 'Prentice Hall', 'en', 464, 'A handbook of agile software craftsmanship.'),
			('9781617294945', 'Spring in Action', 'Craig Walls', 2018, 'Manning', 'en', 520, 'Covers Spring 5 application development.'),
			('9780134685991', 'Effective Java', 'Joshua Bloch', 2018, 'Addison-Wesley', 'en', 412, 'Best practices for the Java platform.'),
			('9780201633610', 'Design Patterns', 'Erich Gamma', 1994, 'Addison-Wesley', 'en', 395, 'Elements of reusable object-oriented software.'),
			('9781491950357', 'Programming Rust', 'Jim Blandy', 2017, 'O''Reilly', 'en', 622, 'Fast, safe systems development.'),
			('9780134190440', 'The Go Programming Language', 'Alan A. A. Donovan', 2015, 'Addison-Wesley', 'en', 380, 'The authoritative resource for Go.')
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			INSERT INTO users (username, firstname, lastname, email) VALUES
			('demo_user_1', 'Demo', 'One', 'demo_user_1@example.com'),
			('demo_user_2', 'Demo', 'Two', 'demo_user_2@example.com'),
			('demo_librarian', 'Demo', 'Librarian', 'demo_librarian@example.com')
`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DELETE FROM loans`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DELETE FROM users`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DELETE FROM books`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
