package core

import (
	"math/big"
	"sync"
	"testing"

	"lumifi/native/ico"
	"lumifi/storage"
)

type allowAll struct{}

func (allowAll) RequireAuth([20]byte) error { return nil }

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestNodeFullFlow(t *testing.T) {
	node := NewNode(storage.NewMemDB())
	node.SetNowFunc(func() uint64 { return 1_000 })
	node.SetIDStrategy(ico.DerivedID)
	auth := allowAll{}

	owner := addr(0x11)
	buyer := addr(0x22)

	tokenAddr, err := node.CreateToken(auth, owner, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if tokenAddr != owner {
		t.Fatalf("token identity = %x, want owner address", tokenAddr)
	}
	if err := node.Mint(auth, tokenAddr, big.NewInt(-500)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	record, ok, err := node.GetToken(tokenAddr)
	if err != nil || !ok {
		t.Fatalf("get token: ok=%v err=%v", ok, err)
	}
	if record.TotalSupply.Int64() != 999_500 {
		t.Fatalf("supply = %s, want 999500", record.TotalSupply)
	}

	if err := node.FundAccount(tokenAddr, buyer, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	saleID, err := node.StartICO(tokenAddr, big.NewInt(50_000), 2_000)
	if err != nil {
		t.Fatalf("start ico: %v", err)
	}
	if err := node.BuyToken(auth, saleID, buyer, big.NewInt(4_000)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	total, err := node.Contribution(buyer)
	if err != nil || total.Int64() != 4_000 {
		t.Fatalf("contribution = %v err=%v, want 4000", total, err)
	}
	held, err := node.HeldBalance(tokenAddr)
	if err != nil || held.Int64() != 4_000 {
		t.Fatalf("held = %v err=%v, want 4000", held, err)
	}

	if err := node.Withdraw(auth, tokenAddr, buyer, big.NewInt(1_500)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	balance, err := node.Balance(tokenAddr, buyer)
	if err != nil || balance.Int64() != 7_500 {
		t.Fatalf("buyer balance = %v err=%v, want 7500", balance, err)
	}

	if err := node.AddLiquidity(auth, "LUMI", owner, big.NewInt(1_000), big.NewInt(1_000)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	out, err := node.Swap("LUMI", big.NewInt(100))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Int64() != 90 {
		t.Fatalf("swap out = %s, want 90", out)
	}
	pool, ok, err := node.GetPool("LUMI")
	if err != nil || !ok {
		t.Fatalf("get pool: ok=%v err=%v", ok, err)
	}
	if pool.TokenReserve.Int64() != 910 || pool.ReferenceReserve.Int64() != 1_100 {
		t.Fatalf("reserves = (%s, %s), want (910, 1100)", pool.TokenReserve, pool.ReferenceReserve)
	}
}

func TestNodeSerialisesConcurrentBuys(t *testing.T) {
	node := NewNode(storage.NewMemDB())
	node.SetNowFunc(func() uint64 { return 1_000 })
	auth := allowAll{}

	tokenAddr := addr(0xA1)
	buyer := addr(0xC3)
	if err := node.FundAccount(tokenAddr, buyer, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	saleID, err := node.StartICO(tokenAddr, big.NewInt(100_000), 2_000)
	if err != nil {
		t.Fatalf("start ico: %v", err)
	}

	const workers = 8
	const buysPerWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < buysPerWorker; j++ {
				if err := node.BuyToken(auth, saleID, buyer, big.NewInt(1)); err != nil {
					t.Errorf("buy: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	total, err := node.Contribution(buyer)
	if err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if total.Int64() != workers*buysPerWorker {
		t.Fatalf("contribution = %s, want %d", total, workers*buysPerWorker)
	}
	held, err := node.HeldBalance(tokenAddr)
	if err != nil || held.Int64() != workers*buysPerWorker {
		t.Fatalf("held = %v err=%v, want %d", held, err, workers*buysPerWorker)
	}
}
