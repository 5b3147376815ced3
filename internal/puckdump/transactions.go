package puckdump

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const TransactionsModule = "transactions_dump"

const transactionsPageSize = 25

// TransactionMove is one player movement inside a transaction. A trade
// produces one row per player, an add/drop pair produces two rows.
type TransactionMove struct {
	TransactionKey string `json:"transaction_key"`
	TransactionID  *int64 `json:"transaction_id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Timestamp      *int64 `json:"timestamp"`
	TimestampISO   string `json:"timestamp_iso,omitempty"`
	PlayerKey      string `json:"player_key"`
	PlayerName     string `json:"player_name,omitempty"`
	MoveType       string `json:"move_type,omitempty"` // add, drop or trade
	Source         string `json:"source,omitempty"`
	SourceName     string `json:"source_name,omitempty"`
	Destination    string `json:"destination,omitempty"`
	DestName       string `json:"destination_name,omitempty"`
}

// TransactionsDocument is the processed output of the transactions module.
type TransactionsDocument struct {
	LeagueKey string            `json:"league_key"`
	Types     string            `json:"types,omitempty"`
	Moves     []TransactionMove `json:"moves"`
}

// TransactionsOptions extends the shared options with the type filter, a
// comma-separated list like "add,drop,trade". Empty means all types.
type TransactionsOptions struct {
	DumpOptions
	Types string
}

// DumpTransactions pages through the league transaction log and flattens
// it into one row per player movement.
func (d *Dumper) DumpTransactions(ctx context.Context, opts TransactionsOptions) (*TransactionsDocument, error) {
	league, err := LoadLeagueContext(opts.ExportDir, opts.LeagueKey)
	if err != nil {
		return nil, err
	}
	names := league.TeamNames()

	rc, err := d.beginRun(opts.DumpOptions, TransactionsModule)
	if err != nil {
		return nil, err
	}

	doc := &TransactionsDocument{LeagueKey: opts.LeagueKey, Types: opts.Types, Moves: []TransactionMove{}}

	for page, start := 0, 0; ; page, start = page+1, start+transactionsPageSize {
		data, err := d.client.Transactions(ctx, opts.LeagueKey, opts.Types, start, transactionsPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions page %d: %w", page, err)
		}
		if _, err := rc.writeRaw(fmt.Sprintf("transactions_page_%d", page), data); err != nil {
			return nil, err
		}
		payload, err := parsePayload(data)
		if err != nil {
			return nil, fmt.Errorf("transactions page %d: %w", page, err)
		}

		count := 0
		for _, entry := range leagueEntries(payload) {
			container, ok := entry["transactions"]
			if !ok {
				continue
			}
			nodes := countedItems(container, "transaction")
			count += len(nodes)
			for _, node := range nodes {
				doc.Moves = append(doc.Moves, transactionMoves(node, names)...)
			}
		}
		d.logger.Debug("transactions page fetched", zap.Int("page", page), zap.Int("count", count))
		if count < transactionsPageSize {
			break
		}
	}

	processedPath, err := rc.writeProcessed("transactions", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("transactions", transactionsSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	d.logger.Info("transactions exported",
		zap.String("league_key", opts.LeagueKey),
		zap.Int("moves", len(doc.Moves)))

	if err := d.finishRun(rc, opts.DumpOptions, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

// transactionMoves flattens one raw transaction node. The node is a list
// whose first element carries the transaction fields and whose second
// wraps the affected players.
func transactionMoves(node any, names map[string]string) []TransactionMove {
	list, ok := asSlice(node)
	if !ok || len(list) == 0 {
		return nil
	}
	head := flattenSingletons(list[0])

	base := TransactionMove{
		TransactionKey: toString(head["transaction_key"]),
		TransactionID:  toInt(head["transaction_id"]),
		Type:           toString(head["type"]),
		Status:         toString(head["status"]),
		Timestamp:      toInt(head["timestamp"]),
	}
	if base.Timestamp != nil {
		base.TimestampISO = time.Unix(*base.Timestamp, 0).UTC().Format("2006-01-02T15:04:05Z")
	}

	var playersContainer any
	for _, item := range list[1:] {
		if m, ok := asMap(item); ok {
			if p, ok := m["players"]; ok {
				playersContainer = p
			}
		}
	}
	if playersContainer == nil {
		// Commissioner actions and the like carry no player block.
		return []TransactionMove{base}
	}

	var moves []TransactionMove
	for _, playerNode := range countedItems(playersContainer, "player") {
		plist, ok := asSlice(playerNode)
		if !ok || len(plist) == 0 {
			continue
		}
		flat := flattenSingletons(plist[0])

		move := base
		move.PlayerKey = toString(flat["player_key"])
		if nameNode, ok := asMap(flat["name"]); ok {
			move.PlayerName = toString(nameNode["full"])
		}

		for _, item := range plist[1:] {
			m, ok := asMap(item)
			if !ok {
				continue
			}
			td := m["transaction_data"]
			// transaction_data itself may be a one-element list.
			if tlist, ok := asSlice(td); ok && len(tlist) > 0 {
				td = tlist[0]
			}
			if tm, ok := asMap(td); ok {
				move.MoveType = toString(tm["type"])
				move.Source = movementEnd(tm, "source")
				move.Destination = movementEnd(tm, "destination")
				move.SourceName = names[move.Source]
				move.DestName = names[move.Destination]
			}
		}
		moves = append(moves, move)
	}
	if len(moves) == 0 {
		return []TransactionMove{base}
	}
	return moves
}

// movementEnd resolves one end of a movement: a team key when present,
// otherwise the pool kind (waivers, freeagents).
func movementEnd(tm map[string]any, side string) string {
	if key := toString(tm[side+"_team_key"]); key != "" {
		return key
	}
	return toString(tm[side+"_type"])
}

func transactionsSheets(doc *TransactionsDocument) []sheetDef {
	sheet := sheetDef{
		Name: "Transactions",
		Headers: []string{
			"timestamp", "type", "status", "player", "move",
			"source", "destination", "transaction_key",
		},
		Widths: map[string]float64{
			"timestamp": 20, "player": 24, "source": 24, "destination": 24, "transaction_key": 18,
		},
	}
	for _, m := range doc.Moves {
		source := m.SourceName
		if source == "" {
			source = m.Source
		}
		dest := m.DestName
		if dest == "" {
			dest = m.Destination
		}
		sheet.Rows = append(sheet.Rows, []any{
			m.TimestampISO, m.Type, m.Status, m.PlayerName, m.MoveType,
			source, dest, m.TransactionKey,
		})
	}
	return []sheetDef{sheet}
}
