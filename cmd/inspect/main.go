package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"duochat/repositories"
)

// inspect renders the store content as a table without going through the
// server. Read-only: it can run against a database locked by a live process.
func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "conv:", "Prefix to scan (conv:, user:, msg:, pair:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("Missing -db flag")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	repository := repositories.NewConversationRepository(db, slog.Default())

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				kind, detail := describe(repository, key, v)
				table.Append([]string{key, kind, detail})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	color.Cyan.Printf("%d entries under prefix %q\n", rows, *prefix)
	table.Render()
}

func describe(repository repositories.ConversationRepository, key string, value []byte) (string, string) {
	switch {
	case strings.HasPrefix(key, "conv:"):
		var conv repositories.DiskConversation
		if err := json.Unmarshal(value, &conv); err != nil {
			return "CONV", fmt.Sprintf("unreadable: %v", err)
		}
		count, err := repository.CountMessages(conv.ID)
		if err != nil {
			return "CONV", conv.Participants.String()
		}
		return "CONV", fmt.Sprintf("%s %d messages", conv.Participants.String(), count)
	case strings.HasPrefix(key, "msg:"):
		var msg repositories.DiskMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return "MSG", fmt.Sprintf("unreadable: %v", err)
		}
		return "MSG", fmt.Sprintf("%s -> %s at %s: %s",
			msg.Sender, msg.Recipient, msg.At.Format("15:04:05"), truncate(msg.Content, 48))
	case strings.HasPrefix(key, "user:"):
		return "USER", string(value)
	case strings.HasPrefix(key, "pair:"):
		return "PAIR", string(value)
	case strings.HasPrefix(key, "nick:"):
		return "NICK", string(value)
	case strings.HasPrefix(key, "dedup:"):
		return "DEDUP", ""
	case strings.HasPrefix(key, "user-conv:"):
		return "INDEX", ""
	default:
		return "RAW", truncate(string(value), 48)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
