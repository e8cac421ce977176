package btc

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
)

// DepositTx is one vault-paying transaction lifted out of a block. The sender
// address is resolved later from the first input's previous output.
type DepositTx struct {
	TxnHash          string
	AmountSat        int64
	ReceivingChainID string
	ReceivingAddress string
	PrevTxnHash      string
	PrevOutIndex     uint32
	BlockTimeMs      int64
}

// ExtractDeposits scans a block for qualifying deposits: an output paying the
// vault script plus an OP_RETURN output carrying "<chainID>,<receivingAddress>".
// Coinbase transactions never qualify.
func ExtractDeposits(block *wire.MsgBlock, vaultScript []byte) []*DepositTx {
	var deposits []*DepositTx
	blockTimeMs := block.Header.Timestamp.UnixMilli()

	for i, tx := range block.Transactions {
		if i == 0 {
			continue
		}

		var amount int64
		for _, out := range tx.TxOut {
			if bytes.Equal(out.PkScript, vaultScript) {
				amount += out.Value
			}
		}
		if amount == 0 {
			continue
		}

		chainID, receiving, ok := parseDepositPayload(tx)
		if !ok {
			log.Debugf("Tx %s pays the vault without a deposit payload, skipping", tx.TxHash().String())
			continue
		}
		if len(tx.TxIn) == 0 {
			continue
		}

		deposits = append(deposits, &DepositTx{
			TxnHash:          tx.TxHash().String(),
			AmountSat:        amount,
			ReceivingChainID: chainID,
			ReceivingAddress: receiving,
			PrevTxnHash:      tx.TxIn[0].PreviousOutPoint.Hash.String(),
			PrevOutIndex:     tx.TxIn[0].PreviousOutPoint.Index,
			BlockTimeMs:      blockTimeMs,
		})
	}
	return deposits
}

func parseDepositPayload(tx *wire.MsgTx) (chainID, receivingAddress string, ok bool) {
	for _, out := range tx.TxOut {
		if len(out.PkScript) == 0 || out.PkScript[0] != txscript.OP_RETURN {
			continue
		}
		pushes, err := txscript.PushedData(out.PkScript)
		if err != nil || len(pushes) == 0 {
			continue
		}
		parts := strings.SplitN(string(pushes[0]), ",", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		return parts[0], parts[1], true
	}
	return "", "", false
}
