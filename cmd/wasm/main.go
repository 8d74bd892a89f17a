//go:build js && wasm

// Command wasm exposes the decryption service and copy protection to the
// browser as the global novelcipher object.
package main

import (
	"log/slog"
	"sync"
	"syscall/js"

	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/protect"
	"github.com/starford/novelcipher/internal/protect/jsdom"
)

type bridge struct {
	mu       sync.Mutex
	cipher   *cipher.Service
	enforcer *protect.Enforcer[js.Value]
}

// configure(key, iv, allowInsecureDefault?) loads key material. It returns
// an error message, or null on success.
func (b *bridge) configure(_ js.Value, args []js.Value) any {
	var key, iv string
	if len(args) > 0 && args[0].Type() == js.TypeString {
		key = args[0].String()
	}
	if len(args) > 1 && args[1].Type() == js.TypeString {
		iv = args[1].String()
	}
	allowInsecure := len(args) > 2 && args[2].Truthy()

	km, err := cipher.NewKeyMaterial(key, iv, allowInsecure)
	if err != nil {
		return err.Error()
	}
	b.mu.Lock()
	b.cipher = cipher.New(cipher.StaticKeys(km))
	b.mu.Unlock()
	return nil
}

// decrypt(ciphertext) returns the display text, or a placeholder.
func (b *bridge) decrypt(_ js.Value, args []js.Value) any {
	b.mu.Lock()
	c := b.cipher
	b.mu.Unlock()
	if c == nil {
		return cipher.DecryptSentinel
	}
	if len(args) == 0 || args[0].Type() != js.TypeString {
		return cipher.DecryptSentinel
	}
	res := c.Open(args[0].String())
	if !res.OK() {
		return res.Display()
	}
	return cipher.DeobscureText(cipher.ObscureForDisplay(res.Text))
}

// protect(element) guards a rendered region.
func (b *bridge) protect(_ js.Value, args []js.Value) any {
	if len(args) == 0 {
		return nil
	}
	b.enforcer.ApplyCopyProtection(args[0])
	return nil
}

// installGlobal() installs the document guards once.
func (b *bridge) installGlobal(_ js.Value, _ []js.Value) any {
	b.enforcer.SetupGlobalCopyProtection()
	return nil
}

func main() {
	// Until configure is called, keys come from the ENCRYPTION_KEY and
	// ENCRYPTION_IV entries of the wasm runtime environment.
	b := &bridge{
		cipher:   cipher.NewFromEnv(),
		enforcer: jsdom.NewEnforcer(),
	}

	api := js.Global().Get("Object").New()
	api.Set("configure", js.FuncOf(b.configure))
	api.Set("decrypt", js.FuncOf(b.decrypt))
	api.Set("protect", js.FuncOf(b.protect))
	api.Set("installGlobal", js.FuncOf(b.installGlobal))
	js.Global().Set("novelcipher", api)

	slog.Info("novelcipher bridge ready")
	select {}
}
