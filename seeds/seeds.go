package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/actuallystonmai/booklist-service/internal/domain"
	"github.com/actuallystonmai/booklist-service/internal/ranking"
)

const seedViewers = 20

type seedBook struct {
	title  string
	author string
	desc   string
	link   string
}

var catalogue = []seedBook{
	{"stoner", "John Williams", "A quiet life spent teaching at a Missouri university.", ""},
	{"the dispossessed", "Ursula K. Le Guin", "A physicist travels between an anarchist moon and its capitalist planet.", "https://www.gutenberg.org/"},
	{"kindred", "Octavia E. Butler", "A woman is pulled back in time to antebellum Maryland.", ""},
	{"dune", "Frank Herbert", "Politics, religion and ecology on a desert planet.", ""},
	{"dune messiah", "Frank Herbert", "The cost of becoming a messiah.", ""},
	{"the left hand of darkness", "Ursula K. Le Guin", "An envoy on a planet whose people have no fixed sex.", ""},
	{"the dying earth", "Jack Vance", "Wizards and rogues under a fading red sun.", "https://www.gutenberg.org/"},
	{"piranesi", "Susanna Clarke", "A man lives alone in an infinite house of halls and statues.", ""},
	{"a canticle for leibowitz", "Walter M. Miller Jr.", "Monks preserve knowledge after a nuclear war.", ""},
	{"the master and margarita", "Mikhail Bulgakov", "The devil visits Soviet Moscow.", ""},
	{"invisible cities", "Italo Calvino", "Marco Polo describes impossible cities to Kublai Khan.", ""},
	{"the remains of the day", "Kazuo Ishiguro", "A butler reflects on decades of service.", ""},
	{"a wizard of earthsea", "Ursula K. Le Guin", "A young mage unleashes a shadow on the world.", ""},
	{"solaris", "Stanislaw Lem", "Scientists fail to understand a planet-wide ocean.", ""},
	{"the name of the rose", "Umberto Eco", "Murders in a medieval abbey library.", ""},
	{"blood meridian", "Cormac McCarthy", "Violence on the US-Mexico border in the 1840s.", ""},
}

// Setup truncates the book list tables and loads a deterministic data set.
func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	rng := rand.New(rand.NewSource(42))

	// Truncate existing data before insert
	log.Info().Msg("[seed] truncating existing data")
	if _, err := pool.Exec(ctx, `
		TRUNCATE read_clicks, ratings, mentions, books RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	log.Info().Int("books", len(catalogue)).Msg("[seed] inserting books")
	if err := seedBooks(ctx, pool, rng); err != nil {
		return fmt.Errorf("seed books: %w", err)
	}

	log.Info().Int("viewers", seedViewers).Msg("[seed] inserting mentions and ratings")
	if err := seedEngagement(ctx, pool, rng, seedViewers, int64(len(catalogue))); err != nil {
		return fmt.Errorf("seed engagement: %w", err)
	}

	log.Info().Msg("[seed] seeding complete")
	return nil
}

func seedBooks(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand) error {
	rows := []string{}
	args := []any{}

	for i, b := range catalogue {
		var link *string
		if b.link != "" {
			link = &b.link
		}
		// every fifth book waits for moderation
		approved := i%5 != 4
		createdAt := time.Now().AddDate(0, 0, -rng.Intn(365))

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, ranking.TitleCase(b.title), b.author, b.desc, link, approved, createdAt)
	}

	query := "INSERT INTO books (title, author, description, read_book_link, approved, created_at) VALUES " +
		strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}

// seedEngagement answers the heard-before question for a power-law share of
// books per viewer. Only viewers who heard of a book may rate it.
func seedEngagement(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, viewers int, books int64) error {
	mentionRows, mentionArgs := []string{}, []any{}
	ratingRows, ratingArgs := []string{}, []any{}

	for viewer := int64(1); viewer <= int64(viewers); viewer++ {
		seen := make(map[int64]bool)
		answers := rng.Intn(int(books)) + 1

		for i := 0; i < answers; i++ {
			bookID := int64(math.Ceil(math.Pow(rng.Float64(), 1.4) * float64(books)))
			bookID = max(1, min(bookID, books))
			if seen[bookID] {
				continue
			}
			seen[bookID] = true

			heard := rng.Float64() < 0.6
			base := len(mentionArgs)
			mentionRows = append(mentionRows, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
			mentionArgs = append(mentionArgs, viewer, bookID, heard)

			if heard && rng.Float64() < 0.7 {
				rating := domain.MinRating + rng.Intn(domain.MaxRating-domain.MinRating+1)
				base := len(ratingArgs)
				ratingRows = append(ratingRows, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
				ratingArgs = append(ratingArgs, viewer, bookID, rating)
			}
		}
	}

	if len(mentionRows) > 0 {
		query := "INSERT INTO mentions (user_id, book_id, mentioned) VALUES " + strings.Join(mentionRows, ", ")
		if _, err := pool.Exec(ctx, query, mentionArgs...); err != nil {
			return fmt.Errorf("insert mentions: %w", err)
		}
	}
	if len(ratingRows) > 0 {
		query := "INSERT INTO ratings (user_id, book_id, rating) VALUES " + strings.Join(ratingRows, ", ")
		if _, err := pool.Exec(ctx, query, ratingArgs...); err != nil {
			return fmt.Errorf("insert ratings: %w", err)
		}
	}
	return nil
}
