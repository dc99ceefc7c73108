package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/engine"
	"github.com/MKhiriev/go-otp-vault/internal/escrow"
	"github.com/MKhiriev/go-otp-vault/internal/totp"
	"github.com/MKhiriev/go-otp-vault/internal/vault"
	"github.com/MKhiriev/go-otp-vault/models"
)

const commandHelp = `Commands:
  add              add an OTP record
  list, ls         list records
  show <n>         record details and otpauth:// URI
  code <n>         print the current one-time code
  copy <n>         copy the current code to the clipboard
  edit <n>         edit a record (empty input keeps values)
  rm <n>           delete a record
  sync             synchronize with the server now
  status           session and sync state
  lock             lock the vault, keep the session
  unlock           unlock a locked vault
  quick-on         escrow the password in the OS keychain
  quick-off        remove the escrowed password
  version          client and server versions
  logout           end the session and erase local data
  quit             exit, keeping local state
`

// authFlow runs the pre-unlock menu. Returns false when the user quit
// instead of opening a session.
func (a *App) authFlow(ctx context.Context, sess *Session) (bool, error) {
	fmt.Fprintln(a.out, "Commands: login, register, recover, quit")

	for {
		line, err := a.prompt.line("auth> ")
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}

		switch line {
		case "":
			continue
		case "login":
			if a.authLogin(ctx, sess) {
				return true, nil
			}
		case "register":
			if a.authRegister(ctx, sess) {
				return true, nil
			}
		case "recover":
			if a.authRecover(ctx, sess) {
				return true, nil
			}
		case "quit", "exit", "q":
			return false, nil
		default:
			fmt.Fprintf(a.out, "unknown command %q\n", line)
		}
	}
}

func (a *App) authLogin(ctx context.Context, sess *Session) bool {
	identity, err := a.prompt.line("Identity: ")
	if err != nil || identity == "" {
		return false
	}

	if sess.QuickUnlockEnabled(identity) {
		if err = sess.QuickUnlock(ctx, identity); err == nil {
			fmt.Fprintf(a.out, "Unlocked %s via quick unlock.\n", identity)
			return true
		}
		a.logger.Debug().Err(err).Str("func", "App.authLogin").Msg("quick unlock failed, falling back to password")
	}

	password, err := a.prompt.secret("Master password: ")
	if err != nil {
		a.printErr(err)
		return false
	}

	if err = sess.Login(ctx, identity, password); err != nil {
		if errors.Is(err, engine.ErrReauthRequired) {
			fmt.Fprintln(a.out, "Unlocked from local data, but the server credentials changed")
			fmt.Fprintln(a.out, "(recovery on another device?). Log in again when online to resync.")
			return true
		}
		a.printErr(err)
		return false
	}

	fmt.Fprintf(a.out, "Unlocked %s.\n", identity)
	return true
}

func (a *App) authRegister(ctx context.Context, sess *Session) bool {
	identity, err := a.prompt.line("Identity (e-mail): ")
	if err != nil || identity == "" {
		return false
	}
	password, err := a.prompt.secretConfirm("Master password: ")
	if err != nil {
		a.printErr(err)
		return false
	}

	recoverySecret, err := sess.Register(ctx, identity, password)
	if err != nil {
		a.printErr(err)
		return false
	}

	fmt.Fprintf(a.out, "Account %s registered.\n", identity)
	a.printRecoverySecret(recoverySecret)
	return true
}

func (a *App) authRecover(ctx context.Context, sess *Session) bool {
	identity, err := a.prompt.line("Identity: ")
	if err != nil || identity == "" {
		return false
	}
	secret, err := a.prompt.secret("Recovery secret: ")
	if err != nil {
		a.printErr(err)
		return false
	}
	password, err := a.prompt.secretConfirm("New master password: ")
	if err != nil {
		a.printErr(err)
		return false
	}

	newSecret, err := sess.Recover(ctx, identity, secret, password)
	if err != nil {
		a.printErr(err)
		return false
	}

	fmt.Fprintln(a.out, "Account recovered. Every other device and session is signed out.")
	a.printRecoverySecret(newSecret)
	return true
}

func (a *App) printRecoverySecret(secret string) {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Recovery secret: write it down and store it offline.")
	fmt.Fprintln(a.out, "It is the ONLY way back in after a forgotten password,")
	fmt.Fprintln(a.out, "and it will never be shown again:")
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "    %s\n", secret)
	fmt.Fprintln(a.out)
}

// mainLoop reads commands until quit or logout. Returns true when the
// user logged out and the app should restart with a fresh auth flow.
func (a *App) mainLoop(ctx context.Context, sess *Session, eng engine.Engine) (bool, error) {
	fmt.Fprintln(a.out, "Type `help` for commands.")

	for {
		line, err := a.prompt.line(a.promptLabel(eng))
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			fmt.Fprint(a.out, commandHelp)
		case "add":
			a.cmdAdd(ctx, eng)
		case "list", "ls":
			a.cmdList(ctx, eng)
		case "show":
			a.cmdShow(ctx, eng, args)
		case "code":
			a.cmdCode(ctx, eng, args)
		case "copy":
			a.cmdCopy(ctx, eng, args)
		case "edit":
			a.cmdEdit(ctx, eng, args)
		case "rm", "delete":
			a.cmdRemove(ctx, eng, args)
		case "sync":
			a.cmdSync(ctx, eng)
		case "status":
			a.cmdStatus(eng, sess)
		case "lock":
			eng.Lock()
			fmt.Fprintln(a.out, "Vault locked.")
		case "unlock":
			a.cmdUnlock(ctx, sess, eng)
		case "quick-on":
			a.cmdQuickOn(ctx, sess)
		case "quick-off":
			a.cmdQuickOff(sess)
		case "version":
			a.cmdVersion(ctx)
		case "logout":
			if a.cmdLogout(ctx, sess, eng) {
				return true, nil
			}
		case "quit", "exit", "q":
			return false, nil
		default:
			fmt.Fprintf(a.out, "unknown command %q, type `help`\n", cmd)
		}
	}
}

// promptLabel renders the REPL prompt with the current engine state, so
// dirty and locked vaults are visible without running `status`.
func (a *App) promptLabel(eng engine.Engine) string {
	if eng.Locked() {
		return "otp(locked)> "
	}
	if status := eng.Status(); status != models.StatusIdle {
		return fmt.Sprintf("otp(%s)> ", status)
	}
	return "otp> "
}

func (a *App) cmdAdd(ctx context.Context, eng engine.Engine) {
	issuer, err := a.prompt.line("Issuer: ")
	if err != nil {
		a.printErr(err)
		return
	}
	account, err := a.prompt.line("Account: ")
	if err != nil {
		a.printErr(err)
		return
	}
	secret, err := a.prompt.secret("Base32 seed: ")
	if err != nil {
		a.printErr(err)
		return
	}

	draft := models.Record{Issuer: issuer, Account: account, Secret: secret}

	custom, err := a.prompt.confirm("Non-default OTP parameters?")
	if err != nil {
		a.printErr(err)
		return
	}
	if custom {
		if draft.Algorithm, err = a.promptAlgorithm(string(models.AlgorithmSHA1)); err != nil {
			a.printErr(err)
			return
		}
		if draft.Digits, err = a.promptInt("Digits [6]: ", 6); err != nil {
			a.printErr(err)
			return
		}
		if draft.Period, err = a.promptInt("Period seconds [30]: ", 30); err != nil {
			a.printErr(err)
			return
		}
	}

	record, err := eng.Add(ctx, draft)
	if err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintf(a.out, "added %s (%s)\n", record.Issuer, record.Account)
}

func (a *App) cmdList(ctx context.Context, eng engine.Engine) {
	records, err := eng.Records(ctx)
	if err != nil {
		a.printErr(err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "vault is empty, `add` the first record")
		return
	}

	w := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tISSUER\tACCOUNT\tOTP")
	for i, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s/%d/%ds\n", i+1, r.Issuer, r.Account, r.Algorithm, r.Digits, r.Period)
	}
	w.Flush()
}

func (a *App) cmdShow(ctx context.Context, eng engine.Engine, args []string) {
	record, err := resolveRecord(ctx, eng, args)
	if err != nil {
		a.printErr(err)
		return
	}

	w := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", record.ID)
	fmt.Fprintf(w, "Issuer\t%s\n", record.Issuer)
	fmt.Fprintf(w, "Account\t%s\n", record.Account)
	fmt.Fprintf(w, "OTP\t%s, %d digits, %ds period\n", record.Algorithm, record.Digits, record.Period)
	fmt.Fprintf(w, "Created\t%s\n", record.CreatedAt.Local().Format(time.RFC822))
	fmt.Fprintf(w, "Updated\t%s\n", record.UpdatedAt.Local().Format(time.RFC822))
	fmt.Fprintf(w, "URI\t%s\n", totp.URI(record))
	w.Flush()
}

func (a *App) cmdCode(ctx context.Context, eng engine.Engine, args []string) {
	record, err := resolveRecord(ctx, eng, args)
	if err != nil {
		a.printErr(err)
		return
	}

	now := time.Now()
	code, err := totp.Code(record, now)
	if err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintf(a.out, "%s  (%s, %d seconds left)\n", code, record.Issuer, int(totp.Remaining(record, now).Seconds()))
}

func (a *App) cmdCopy(ctx context.Context, eng engine.Engine, args []string) {
	record, err := resolveRecord(ctx, eng, args)
	if err != nil {
		a.printErr(err)
		return
	}

	now := time.Now()
	code, err := totp.Code(record, now)
	if err != nil {
		a.printErr(err)
		return
	}

	if err = clipboard.WriteAll(code); err != nil {
		a.printErr(fmt.Errorf("copy to clipboard: %w", err))
		return
	}
	fmt.Fprintf(a.out, "code for %s copied, valid %d more seconds\n", record.Issuer, int(totp.Remaining(record, now).Seconds()))
}

func (a *App) cmdEdit(ctx context.Context, eng engine.Engine, args []string) {
	record, err := resolveRecord(ctx, eng, args)
	if err != nil {
		a.printErr(err)
		return
	}

	fmt.Fprintln(a.out, "Empty input keeps the current value.")
	issuer, err := a.prompt.line(fmt.Sprintf("Issuer [%s]: ", record.Issuer))
	if err != nil {
		a.printErr(err)
		return
	}
	account, err := a.prompt.line(fmt.Sprintf("Account [%s]: ", record.Account))
	if err != nil {
		a.printErr(err)
		return
	}
	secret, err := a.prompt.secret("New seed: ")
	if err != nil {
		a.printErr(err)
		return
	}

	if issuer != "" {
		record.Issuer = issuer
	}
	if account != "" {
		record.Account = account
	}
	record.Secret = secret

	custom, err := a.prompt.confirm("Change OTP parameters?")
	if err != nil {
		a.printErr(err)
		return
	}
	if custom {
		if record.Algorithm, err = a.promptAlgorithm(string(record.Algorithm)); err != nil {
			a.printErr(err)
			return
		}
		if record.Digits, err = a.promptInt(fmt.Sprintf("Digits [%d]: ", record.Digits), record.Digits); err != nil {
			a.printErr(err)
			return
		}
		if record.Period, err = a.promptInt(fmt.Sprintf("Period seconds [%d]: ", record.Period), record.Period); err != nil {
			a.printErr(err)
			return
		}
	}

	if err = eng.Update(ctx, record); err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintf(a.out, "updated %s (%s)\n", record.Issuer, record.Account)
}

func (a *App) cmdRemove(ctx context.Context, eng engine.Engine, args []string) {
	record, err := resolveRecord(ctx, eng, args)
	if err != nil {
		a.printErr(err)
		return
	}

	ok, err := a.prompt.confirm(fmt.Sprintf("Delete %s (%s)?", record.Issuer, record.Account))
	if err != nil || !ok {
		return
	}

	if err = eng.Delete(ctx, record.ID); err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintf(a.out, "deleted %s (%s)\n", record.Issuer, record.Account)
}

func (a *App) cmdSync(ctx context.Context, eng engine.Engine) {
	if err := eng.Sync(ctx); err != nil {
		a.printErr(err)
		return
	}

	switch eng.Status() {
	case models.StatusSyncing:
		fmt.Fprintln(a.out, "sync already running")
	case models.StatusIdle:
		fmt.Fprintf(a.out, "in sync with server, vault version %d\n", eng.Version())
	default:
		fmt.Fprintf(a.out, "sync finished with status %s\n", eng.Status())
	}
}

func (a *App) cmdStatus(eng engine.Engine, sess *Session) {
	w := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Identity\t%s\n", sess.Identity())
	if eng.Locked() {
		fmt.Fprintln(w, "Vault\tlocked")
	} else {
		fmt.Fprintln(w, "Vault\tunlocked")
	}
	fmt.Fprintf(w, "Sync\t%s\n", eng.Status())
	fmt.Fprintf(w, "Version\t%d\n", eng.Version())
	if sess.QuickUnlockEnabled(sess.Identity()) {
		fmt.Fprintln(w, "Quick unlock\tenabled")
	} else {
		fmt.Fprintln(w, "Quick unlock\toff")
	}
	w.Flush()
}

func (a *App) cmdUnlock(ctx context.Context, sess *Session, eng engine.Engine) {
	if !eng.Locked() {
		fmt.Fprintln(a.out, "vault is not locked")
		return
	}

	identity := sess.Identity()
	if identity == "" {
		fmt.Fprintln(a.out, "no session, `logout` and log in")
		return
	}

	if sess.QuickUnlockEnabled(identity) {
		if err := sess.QuickUnlock(ctx, identity); err == nil {
			fmt.Fprintln(a.out, "Vault unlocked.")
			return
		}
	}

	password, err := a.prompt.secret("Master password: ")
	if err != nil {
		a.printErr(err)
		return
	}
	if err = sess.Login(ctx, identity, password); err != nil && !errors.Is(err, engine.ErrReauthRequired) {
		a.printErr(err)
		return
	}
	fmt.Fprintln(a.out, "Vault unlocked.")
}

func (a *App) cmdQuickOn(ctx context.Context, sess *Session) {
	password, err := a.prompt.secret("Master password to escrow: ")
	if err != nil {
		a.printErr(err)
		return
	}
	if err = sess.EnableQuickUnlock(ctx, password); err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintln(a.out, "Quick unlock enabled on this device.")
}

func (a *App) cmdQuickOff(sess *Session) {
	if err := sess.DisableQuickUnlock(); err != nil {
		a.printErr(err)
		return
	}
	fmt.Fprintln(a.out, "Quick unlock disabled.")
}

func (a *App) cmdVersion(ctx context.Context) {
	fmt.Fprintf(a.out, "client %s\n", a.cfg.App.Version)

	serverVersion, err := a.server.Version(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "server unreachable")
		return
	}
	fmt.Fprintf(a.out, "server %s\n", serverVersion)
}

// cmdLogout pushes pending changes best-effort, warns when some would
// still be lost, and scrubs the device. Returns true when the logout
// went through.
func (a *App) cmdLogout(ctx context.Context, sess *Session, eng engine.Engine) bool {
	if st := eng.Status(); !eng.Locked() && (st == models.StatusDirty || st == models.StatusConflict) {
		fmt.Fprintln(a.out, "pushing unsynced changes...")
		_ = eng.Sync(ctx)
	}

	if st := eng.Status(); st == models.StatusDirty || st == models.StatusConflict {
		ok, err := a.prompt.confirm("Unsynced changes will be lost. Log out anyway?")
		if err != nil || !ok {
			return false
		}
	}

	if err := sess.Logout(ctx); err != nil {
		a.printErr(err)
		return false
	}
	fmt.Fprintln(a.out, "Logged out, local data erased.")
	return true
}

// resolveRecord maps a command argument to a record: either a 1-based
// index into the current `list` order or a full record ID. The order is
// stable between calls because it is creation order.
func resolveRecord(ctx context.Context, eng engine.Engine, args []string) (models.Record, error) {
	if len(args) != 1 {
		return models.Record{}, fmt.Errorf("expected a record number, see `list`")
	}

	records, err := eng.Records(ctx)
	if err != nil {
		return models.Record{}, err
	}

	if n, convErr := strconv.Atoi(args[0]); convErr == nil {
		if n < 1 || n > len(records) {
			return models.Record{}, fmt.Errorf("record %d is out of range, vault holds %d", n, len(records))
		}
		return records[n-1], nil
	}

	for _, r := range records {
		if r.ID == args[0] {
			return r, nil
		}
	}
	return models.Record{}, engine.ErrRecordNotFound
}

func (a *App) promptInt(label string, def int) (int, error) {
	answer, err := a.prompt.line(label)
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	return strconv.Atoi(answer)
}

func (a *App) promptAlgorithm(def string) (models.OTPAlgorithm, error) {
	answer, err := a.prompt.line(fmt.Sprintf("Algorithm SHA1/SHA256/SHA512 [%s]: ", def))
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = def
	}
	return models.OTPAlgorithm(strings.ToUpper(answer)), nil
}

// printErr translates sentinel errors into one-line advice; anything
// unrecognized is printed as-is.
func (a *App) printErr(err error) {
	switch {
	case errors.Is(err, engine.ErrVaultLocked):
		fmt.Fprintln(a.out, "vault is locked: `unlock` first")
	case errors.Is(err, engine.ErrRecordNotFound):
		fmt.Fprintln(a.out, "no such record")
	case errors.Is(err, engine.ErrReauthRequired):
		fmt.Fprintln(a.out, "credentials changed on the server: `logout` and log in again")
	case errors.Is(err, vault.ErrDecryptionFailed):
		fmt.Fprintln(a.out, "wrong password")
	case errors.Is(err, vault.ErrRecoveryUnwrapFailed):
		fmt.Fprintln(a.out, "recovery failed: wrong secret or unknown account")
	case errors.Is(err, adapter.ErrUnauthorized):
		fmt.Fprintln(a.out, "server rejected the credentials")
	case errors.Is(err, adapter.ErrIdentityTaken):
		fmt.Fprintln(a.out, "this identity is already registered")
	case errors.Is(err, adapter.ErrNetworkUnavailable):
		fmt.Fprintln(a.out, "server unreachable, working offline")
	case errors.Is(err, escrow.ErrEscrowUnavailable):
		fmt.Fprintln(a.out, "OS keychain unavailable on this device")
	case errors.Is(err, ErrParamsUnavailable):
		fmt.Fprintln(a.out, "first login needs the server: connect once, then offline works")
	case errors.Is(err, ErrWrongPassword):
		fmt.Fprintln(a.out, "wrong password")
	default:
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
}
