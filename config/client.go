package config

type Client struct {
	ServerAddr string `envconfig:"SERVER_ADDR" required:"true"`
	Name       string `envconfig:"NAME" required:"true"`
}

type Wallet struct {
	PrivateKeyHex string `envconfig:"WALLET_PRIVATE_KEY" required:"true"`
	Strategy      string `envconfig:"SIWB_STRATEGY" default:"recover"`
}
