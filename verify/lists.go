package verify

// SuspiciousDomains are known disposable-mail providers. A domain equal to,
// or containing, any entry is rejected.
var SuspiciousDomains = []string{
	"tempmail.org", "10minutemail.com", "guerrillamail.com", "mailinator.com",
	"throwaway.email", "temp-mail.org", "getnada.com", "maildrop.cc",
	"sharklasers.com", "grr.la", "guerrillamailblock.com", "pokemail.net",
	"spam4.me", "bccto.me", "chacuo.net", "dispostable.com", "emailondeck.com",
}

// LegitimateProviders are accepted on an exact domain match.
var LegitimateProviders = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "live.com",
	"icloud.com", "protonmail.com", "fastmail.com", "zoho.com", "aol.com",
	"libero.it", "virgilio.it", "alice.it", "tin.it", "tiscali.it",
	"email.it", "inwind.it", "kataweb.it", "iol.it", "supereva.it",
}
