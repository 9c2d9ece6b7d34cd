package constants

const USER_AGENT = "blitzstats/1.0 (+https://github.com/Amund211/blitzstats)"
