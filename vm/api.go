package vm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
	"github.com/zinc-lang/zinc/vm/storage"
)

// LoadBytecode decodes a serialized artifact into its Application, the Go
// rendering of §6's `load_bytecode(bytes) -> Application | BytecodeError`.
func LoadBytecode(data []byte) (bytecode.Application, error) {
	app, _, err := bytecode.Decode(data)
	if err != nil {
		return nil, newRunError(KindMalformedBytecode, err.Error())
	}
	return app, nil
}

// RunCircuit runs a Circuit application's main entry point against a JSON
// witness, the Go rendering of §6's
// `run_circuit(circuit, witness_json) -> (public_json, Result)`. witnessJSON
// must decode to a JSON array matching circuit.InputType's element order.
func RunCircuit(ctx context.Context, circuit *bytecode.Circuit, witnessJSON []byte) ([]byte, error) {
	var raw any
	if len(witnessJSON) > 0 {
		if err := json.Unmarshal(witnessJSON, &raw); err != nil {
			return nil, newRunError(KindMalformedBytecode, fmt.Sprintf("invalid witness json: %v", err))
		}
	}
	inputVals, err := valuesFromJSON(circuit.InputType, raw)
	if err != nil {
		return nil, newRunError(KindMalformedBytecode, err.Error())
	}
	inputs, _ := typedScalars(circuit.InputType, inputVals)

	cs := constraint.NewSystem()
	m := NewMachine(cs, nil)
	m.data[0].slots = inputs

	outputs, err := m.Run(ctx, circuit.Program, circuit.EntryAddress)
	if err != nil {
		return nil, err
	}

	outVals := make([]fr.Element, len(outputs))
	for i, o := range outputs {
		outVals[i] = o.Value
	}
	result, _, err := valuesToJSON(circuit.OutputType, outVals)
	if err != nil {
		return nil, newRunError(KindMalformedBytecode, err.Error())
	}
	return json.Marshal(result)
}

// StorageSnapshot is the JSON shape of a contract's storage before/after a
// method call: one leaf per StorageField, each a decimal-string-encoded
// field element sequence (§6's storage_before/storage_after).
type StorageSnapshot struct {
	Leaves [][]string `json:"leaves"`
}

func treeFromSnapshot(fields []bytecode.StorageField, snap *StorageSnapshot) (*storage.InMemoryTree, error) {
	depth := storage.DepthForFields(len(fields))
	tree := storage.NewInMemoryTree(depth)
	if snap == nil {
		return tree, nil
	}
	for i, leaf := range snap.Leaves {
		vals := make([]fr.Element, len(leaf))
		for j, s := range leaf {
			iv, err := bigIntFromJSON(s)
			if err != nil {
				return nil, err
			}
			vals[j] = gadgets.FromBigInt(iv)
		}
		tree.Store(i, vals)
	}
	return tree, nil
}

func snapshotFromTree(tree *storage.InMemoryTree, fields []bytecode.StorageField) *StorageSnapshot {
	snap := &StorageSnapshot{Leaves: make([][]string, len(fields))}
	for i := range fields {
		values, _ := tree.Load(i)
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = v.String()
		}
		snap.Leaves[i] = row
	}
	return snap
}

// RunContractMethod runs one contract method against its prior storage
// snapshot, the Go rendering of §6's `run_contract_method(contract,
// method_name, storage_before, witness_json) -> (public_json, storage_after,
// transfer_list, Result)`.
func RunContractMethod(ctx context.Context, contract *bytecode.Contract, methodName string, storageBeforeJSON, witnessJSON []byte) (publicJSON []byte, storageAfterJSON []byte, transfers []Transfer, err error) {
	var method *bytecode.ContractMethod
	for i := range contract.Methods {
		if contract.Methods[i].Name == methodName {
			method = &contract.Methods[i]
			break
		}
	}
	if method == nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, fmt.Sprintf("unknown contract method %q", methodName))
	}

	var snap *StorageSnapshot
	if len(storageBeforeJSON) > 0 {
		snap = &StorageSnapshot{}
		if err := json.Unmarshal(storageBeforeJSON, snap); err != nil {
			return nil, nil, nil, newRunError(KindMalformedBytecode, fmt.Sprintf("invalid storage_before: %v", err))
		}
	}
	tree, err := treeFromSnapshot(contract.StorageLayout, snap)
	if err != nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, err.Error())
	}

	var raw any
	if len(witnessJSON) > 0 {
		if err := json.Unmarshal(witnessJSON, &raw); err != nil {
			return nil, nil, nil, newRunError(KindMalformedBytecode, fmt.Sprintf("invalid witness json: %v", err))
		}
	}
	inputVals, err := valuesFromJSON(method.InputType, raw)
	if err != nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, err.Error())
	}
	inputs, _ := typedScalars(method.InputType, inputVals)

	cs := constraint.NewSystem()
	st := storage.Init(cs, tree)
	m := NewMachine(cs, st)
	m.data[0].slots = inputs

	outputs, runErr := m.Run(ctx, contract.Program, method.Address)
	if runErr != nil {
		return nil, nil, nil, runErr
	}

	outVals := make([]fr.Element, len(outputs))
	for i, o := range outputs {
		outVals[i] = o.Value
	}
	result, _, err := valuesToJSON(method.OutputType, outVals)
	if err != nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, err.Error())
	}
	publicJSON, err = json.Marshal(result)
	if err != nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, err.Error())
	}

	afterSnap := snapshotFromTree(tree, contract.StorageLayout)
	storageAfterJSON, err = json.Marshal(afterSnap)
	if err != nil {
		return nil, nil, nil, newRunError(KindMalformedBytecode, err.Error())
	}

	out := make([]Transfer, len(m.transfers))
	for i, t := range m.transfers {
		out[i] = Transfer{ToAddress: t.ToAddr.String(), Amount: t.Amount.String()}
	}
	return publicJSON, storageAfterJSON, out, nil
}

// Transfer is the JSON-friendly rendering of one gadgets.Transfer for a
// run_contract_method result's transfer_list.
type Transfer struct {
	ToAddress string `json:"to"`
	Amount    string `json:"amount"`
}
