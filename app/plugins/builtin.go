package plugins

import (
	"github.com/kilianp07/modai/modules/audit"
	"github.com/kilianp07/modai/modules/authentication"
	"github.com/kilianp07/modai/modules/health"
	"github.com/kilianp07/modai/modules/modelprovider"
	"github.com/kilianp07/modai/modules/providerstore"
	"github.com/kilianp07/modai/modules/session"
	"github.com/kilianp07/modai/modules/user"
	"github.com/kilianp07/modai/modules/usersettings"
	"github.com/kilianp07/modai/modules/userstore"
)

func init() {
	mustRegister("health.simple", health.New)

	mustRegister("userstore.inmemory", userstore.NewInMemory)
	mustRegister("userstore.sqlite", userstore.NewSQLite)

	mustRegister("session.jwt", session.NewJWT)

	mustRegister("audit.log", audit.NewLog)

	mustRegister("authentication.password", authentication.NewPassword)

	mustRegister("user.simple", user.New)

	mustRegister("usersettings.inmemory", usersettings.NewInMemory)
	mustRegister("usersettings.sqlite", usersettings.NewSQLite)
	mustRegister("usersettings.simple", usersettings.New)

	mustRegister("providerstore.inmemory", providerstore.NewInMemory)
	mustRegister("providerstore.sqlite", providerstore.NewSQLite)

	mustRegister("modelprovider.openai", modelprovider.NewOpenAI)
	mustRegister("modelprovider.router", modelprovider.NewRouter)
}
