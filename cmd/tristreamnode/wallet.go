package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/tristream-labs/tristream-chain/config"
	"github.com/tristream-labs/tristream-chain/internal/wallet"
)

// runWallet handles the "wallet" subcommand family:
//
//	tristreamnode wallet create <name>
//	tristreamnode wallet address <name> [account_index]
//	tristreamnode wallet unlock <name>
//
// It manages the node operator's own signing identity and contract-wallet
// owner keys (the desktop wallet client itself is out of scope per spec §1).
func runWallet(cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tristreamnode wallet <create|address|unlock> <name> [...]")
		return 1
	}

	ks, err := wallet.NewKeystore(cfg.WalletDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening keystore: %v\n", err)
		return 1
	}

	switch args[0] {
	case "create":
		return walletCreate(ks, args[1:])
	case "address":
		return walletAddress(ks, args[1:])
	case "unlock":
		return walletUnlock(ks, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown wallet subcommand %q\n", args[0])
		return 1
	}
}

func walletCreate(ks *wallet.Keystore, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tristreamnode wallet create <name>")
		return 1
	}
	name := args[0]

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generating mnemonic: %v\n", err)
		return 1
	}

	password, err := promptNewPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deriving seed: %v\n", err)
		return 1
	}

	if err := ks.Create(name, seed, password, wallet.DefaultParams()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: creating wallet: %v\n", err)
		return 1
	}

	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deriving master key: %v\n", err)
		return 1
	}
	addr, err := master.DeriveAddress(0, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deriving first address: %v\n", err)
		return 1
	}
	firstAddr, err := addr.Address()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: computing address: %v\n", err)
		return 1
	}
	if err := ks.AddAccount(name, wallet.AccountEntry{Change: 0, Index: 0, Name: "default", Address: firstAddr.String()}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: recording account: %v\n", err)
		return 1
	}

	fmt.Printf("wallet %q created\n", name)
	fmt.Printf("mnemonic (write this down, it is shown only once): %s\n", mnemonic)
	fmt.Printf("address: %s\n", firstAddr.String())
	return 0
}

func walletAddress(ks *wallet.Keystore, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tristreamnode wallet address <name> [account_index]")
		return 1
	}
	accounts, err := ks.ListAccounts(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	var only uint64
	if len(args) > 1 {
		if only, err = strconv.ParseUint(args[1], 10, 32); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid account_index %q\n", args[1])
			return 1
		}
	}
	for _, a := range accounts {
		if len(args) > 1 && uint64(a.Index) != only {
			continue
		}
		fmt.Printf("%d: %s (%s)\n", a.Index, a.Address, a.Name)
	}
	return 0
}

func walletUnlock(ks *wallet.Keystore, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tristreamnode wallet unlock <name>")
		return 1
	}
	name := args[0]

	password, err := promptPassword("Password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	seed, err := ks.Load(name, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unlocking wallet: %v\n", err)
		return 1
	}

	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deriving master key: %v\n", err)
		return 1
	}
	addr, err := master.DeriveAddress(0, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deriving address: %v\n", err)
		return 1
	}
	firstAddr, err := addr.Address()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: computing address: %v\n", err)
		return 1
	}

	fmt.Printf("wallet %q unlocked, default address %s\n", name, firstAddr.String())
	return 0
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

// promptNewPassword reads a new password twice and requires the two entries
// to match, to catch typos when creating a wallet.
func promptNewPassword() ([]byte, error) {
	first, err := promptPassword("New password: ")
	if err != nil {
		return nil, err
	}
	second, err := promptPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if string(first) != string(second) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return first, nil
}
