package domain

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t TokenPair) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}
