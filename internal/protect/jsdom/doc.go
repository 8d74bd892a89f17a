// Package jsdom implements protect.Mechanism on a browser DOM through
// syscall/js. It is only built for js/wasm.
package jsdom
