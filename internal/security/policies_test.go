package security

import (
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/internal/reputation"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func TestPolicyManager_BlockAddressTriggers(t *testing.T) {
	rep := reputation.NewManager()
	forensics := NewForensicAnalyzer()
	pm := NewPolicyManager(rep, forensics)

	var blocked, to types.Address
	blocked[0] = 0xAA
	to[0] = 0x02

	if _, err := pm.AddPolicy(SecurityPolicy{
		Name:      "sanctioned",
		Type:      PolicyBlockAddress,
		Action:    PolicyAction{Kind: ActionReject, Message: "address is sanctioned"},
		Enabled:   true,
		Addresses: []types.Address{blocked},
	}); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	txn := &tx.Transaction{From: blocked, To: to, Value: big.NewInt(1)}
	reject, reason := pm.Evaluate(txn)
	if !reject {
		t.Fatalf("expected reject, got false (reason=%q)", reason)
	}
}

func TestPolicyManager_MaxRiskScoreTriggersOnLowReputation(t *testing.T) {
	rep := reputation.NewManager()
	forensics := NewForensicAnalyzer()
	pm := NewPolicyManager(rep, forensics)

	var addr, to types.Address
	addr[0] = 0x01
	to[0] = 0x02

	for i := 0; i < 20; i++ {
		rep.RecordFailedTx(addr)
	}
	forensics.IndexTransaction(&tx.Transaction{From: addr, To: to, Value: big.NewInt(1)}, 1000)

	if _, err := pm.AddPolicy(SecurityPolicy{
		Name:      "high-risk",
		Type:      PolicyMaxRiskScore,
		Action:    PolicyAction{Kind: ActionReject, Message: "risk too high"},
		Enabled:   true,
		Threshold: 0.3,
	}); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	reject, _ := pm.Evaluate(&tx.Transaction{From: addr, To: to, Value: big.NewInt(1)})
	if !reject {
		t.Fatal("expected low-reputation address to trigger max-risk-score policy")
	}
}

func TestPolicyManager_WarnActionDoesNotReject(t *testing.T) {
	rep := reputation.NewManager()
	forensics := NewForensicAnalyzer()
	pm := NewPolicyManager(rep, forensics)

	var blocked types.Address
	blocked[0] = 0xBB

	if _, err := pm.AddPolicy(SecurityPolicy{
		Name:      "watch",
		Type:      PolicyBlockAddress,
		Action:    PolicyAction{Kind: ActionWarn, Message: "watch this address"},
		Enabled:   true,
		Addresses: []types.Address{blocked},
	}); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	reject, reason := pm.Evaluate(&tx.Transaction{From: blocked, Value: big.NewInt(1)})
	if reject {
		t.Fatalf("warn action should not reject, reason=%q", reason)
	}
}

func TestPolicyManager_DisabledPolicyDoesNotTrigger(t *testing.T) {
	rep := reputation.NewManager()
	forensics := NewForensicAnalyzer()
	pm := NewPolicyManager(rep, forensics)

	var blocked types.Address
	blocked[0] = 0xCC

	if _, err := pm.AddPolicy(SecurityPolicy{
		Name:      "off",
		Type:      PolicyBlockAddress,
		Action:    PolicyAction{Kind: ActionReject},
		Enabled:   false,
		Addresses: []types.Address{blocked},
	}); err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	reject, _ := pm.Evaluate(&tx.Transaction{From: blocked, Value: big.NewInt(1)})
	if reject {
		t.Fatal("disabled policy should not trigger")
	}
}

func TestValidatePolicy_RejectsBadThresholdAndEmptyLists(t *testing.T) {
	if _, err := (&PolicyManager{ownerPolicies: map[types.Address][]SecurityPolicy{}}).AddPolicy(SecurityPolicy{
		Type: PolicyMaxRiskScore, Threshold: 1.5,
	}); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
	if _, err := (&PolicyManager{ownerPolicies: map[types.Address][]SecurityPolicy{}}).AddPolicy(SecurityPolicy{
		Type: PolicyBlockAddress,
	}); err == nil {
		t.Error("expected error for empty address list")
	}
}
