package main

import (
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/repositories"
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Lists the memberships held in a badger membership store and optionally
// seeds it for local testing:
//
//	go run ./tools -db ./data/badger -add 7:3 -add 8:3 -chat 3:general
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	var adds, chats pairs
	flag.Var(&adds, "add", "membership to add as user:chat, repeatable")
	flag.Var(&chats, "chat", "chat to save as id:name, repeatable")
	flag.Parse()

	readOnly := len(adds) == 0 && len(chats) == 0
	db, err := openDB(*dbPath, readOnly)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	store := repositories.NewBadgerStore(db, slog.Default())
	if err := seed(ctx, store, adds, chats); err != nil {
		log.Fatal(err)
	}

	memberships, err := store.ListMemberships(ctx)
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Chat", "Group", "Name"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range memberships {
		name := "-"
		chat, err := store.GetChat(ctx, m.ChatID)
		switch {
		case err == nil:
			name = chat.Name
		case !stderrors.Is(err, errors.ErrChatNotFound):
			fmt.Printf("Error reading chat %d: %v\n", m.ChatID, err)
		}
		table.Append([]string{
			strconv.FormatInt(int64(m.UserID), 10),
			strconv.FormatInt(int64(m.ChatID), 10),
			domain.GroupNameFor(m.ChatID).String(),
			name,
		})
	}
	table.Render()
}

func seed(ctx context.Context, store repositories.BadgerStore, adds, chats pairs) error {
	for _, p := range adds {
		userID, err := strconv.ParseInt(p.left, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user in %q: %w", p, err)
		}
		chatID, err := strconv.ParseInt(p.right, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat in %q: %w", p, err)
		}
		m := domain.Membership{UserID: domain.UserID(userID), ChatID: domain.ChatID(chatID)}
		if err := store.AddMember(ctx, m); err != nil {
			return err
		}
	}
	for _, p := range chats {
		chatID, err := strconv.ParseInt(p.left, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat in %q: %w", p, err)
		}
		if err := store.SaveChat(ctx, domain.Chat{ID: domain.ChatID(chatID), Name: p.right}); err != nil {
			return err
		}
	}
	return nil
}

type pair struct{ left, right string }

func (p pair) String() string { return p.left + ":" + p.right }

type pairs []pair

func (p *pairs) String() string { return fmt.Sprint(*p) }

func (p *pairs) Set(value string) error {
	left, right, ok := strings.Cut(value, ":")
	if !ok || left == "" || right == "" {
		return fmt.Errorf("expected a:b, got %q", value)
	}
	*p = append(*p, pair{left: left, right: right})
	return nil
}

func openDB(path string, readOnly bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(readOnly).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
