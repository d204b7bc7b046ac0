package store

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/UndeffinedDev/Indexa/cmd/util"
	"github.com/UndeffinedDev/Indexa/lib/engine"
	"github.com/UndeffinedDev/Indexa/lib/indexa"
	"github.com/spf13/cobra"
)

// parseRecord decodes a record argument given as a JSON object
func parseRecord(arg string) (map[string]any, error) {
	var value map[string]any
	if err := json.Unmarshal([]byte(arg), &value); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	return value, nil
}

func printRecords(records []indexa.Record) {
	for _, rec := range records {
		fmt.Printf("key=%s value=%s\n", rec.Key, rec.Value)
	}
}

var (
	addCmd = &cobra.Command{
		Use:   "add [store] [record]",
		Short: "Inserts a new record (given as a JSON object)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			key, err := db.Add(args[0], value)
			if err != nil {
				return err
			}
			fmt.Printf("added with key=%s\n", key)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [store] [key]",
		Short: "Reads the record for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value map[string]any
			found, err := db.Get(args[0], util.ParseKey(args[1]), &value)
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("key=%s not found\n", args[1])
				return nil
			}
			out, err := json.Marshal(value)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s value=%s\n", args[1], out)
			return nil
		},
	}
	allCmd = &cobra.Command{
		Use:   "all [store]",
		Short: "Lists all records in ascending key order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := db.GetAll(args[0])
			if err != nil {
				return err
			}
			printRecords(records)
			fmt.Printf("%d record(s)\n", len(records))
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [store] [record]",
		Short: "Inserts or replaces a record (given as a JSON object)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			key, err := db.Update(args[0], value)
			if err != nil {
				return err
			}
			fmt.Printf("updated key=%s\n", key)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [store] [key]",
		Short: "Deletes the record for a key (no-op if absent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Delete(args[0], util.ParseKey(args[1])); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [store]",
		Short: "Removes all records in the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Clear(args[0]); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [store]",
		Short: "Counts the records in the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := db.Count(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("count=%d\n", n)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [store] [key]",
		Short: "Checks whether a key exists (key-only lookup)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := db.Exists(args[0], util.ParseKey(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s exists=%v\n", args[1], found)
			return nil
		},
	}
	indexCmd = &cobra.Command{
		Use:   "index [store] [index] [value] [upper]",
		Short: "Queries a secondary index: exact match, or the closed range [value, upper]",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := engine.Only(util.ParseKey(args[2]))
			if len(args) == 4 {
				query = engine.Bound(util.ParseKey(args[2]), util.ParseKey(args[3]), false, false)
			}
			records, err := db.GetByIndex(args[0], args[1], query)
			if err != nil {
				return err
			}
			printRecords(records)
			fmt.Printf("%d record(s)\n", len(records))
			return nil
		},
	}
	watchCmd = &cobra.Command{
		Use:   "watch [store]",
		Short: "Subscribes to the store and prints every snapshot until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := db.Subscribe(args[0], func(records []indexa.Record) {
				fmt.Printf("--- snapshot (%d record(s)) ---\n", len(records))
				printRecords(records)
			})
			if err != nil {
				return err
			}
			defer db.Unsubscribe(sub)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop",
		Short: "Deletes the whole database (refused while another connection is open)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.DeleteDatabase(); err != nil {
				return err
			}
			fmt.Println("database deleted")
			return nil
		},
	}
)
